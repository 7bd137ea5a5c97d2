package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitabwire/loom/model"
)

// PgStore is a PostgreSQL-backed Store using pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL store on an existing pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// HealthCheck pings the database.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Workflows ---

// CreateWorkflow inserts a new workflow with its step list.
func (s *PgStore) CreateWorkflow(ctx context.Context, wf model.Workflow) error {
	stepsJSON, err := json.Marshal(wf.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflows (
			id, user_id, name, description, steps, is_public, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		wf.ID, wf.UserID, wf.Name, wf.Description, stepsJSON, wf.IsPublic,
		wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *PgStore) GetWorkflow(ctx context.Context, id string) (model.Workflow, error) {
	var wf model.Workflow
	var stepsJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, description, steps, is_public, created_at, updated_at
		FROM workflows
		WHERE id = $1`,
		id,
	).Scan(
		&wf.ID, &wf.UserID, &wf.Name, &wf.Description, &stepsJSON, &wf.IsPublic,
		&wf.CreatedAt, &wf.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return model.Workflow{}, model.NewNotFoundError(fmt.Sprintf("workflow %q not found", id))
	}
	if err != nil {
		return model.Workflow{}, fmt.Errorf("query workflow: %w", err)
	}

	if stepsJSON != nil {
		if err := json.Unmarshal(stepsJSON, &wf.Steps); err != nil {
			return model.Workflow{}, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	return wf, nil
}

// ListWorkflows returns workflows owned by the user, newest first.
func (s *PgStore) ListWorkflows(ctx context.Context, userID string) ([]model.Workflow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, description, steps, is_public, created_at, updated_at
		FROM workflows
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	var workflows []model.Workflow
	for rows.Next() {
		var wf model.Workflow
		var stepsJSON []byte
		if err := rows.Scan(
			&wf.ID, &wf.UserID, &wf.Name, &wf.Description, &stepsJSON, &wf.IsPublic,
			&wf.CreatedAt, &wf.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		if stepsJSON != nil {
			if err := json.Unmarshal(stepsJSON, &wf.Steps); err != nil {
				return nil, fmt.Errorf("unmarshal steps: %w", err)
			}
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

// UpdateWorkflow replaces a workflow's mutable fields, including its step
// list.
func (s *PgStore) UpdateWorkflow(ctx context.Context, wf model.Workflow) error {
	stepsJSON, err := json.Marshal(wf.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE workflows SET
			name = $1,
			description = $2,
			steps = $3,
			is_public = $4,
			updated_at = $5
		WHERE id = $6`,
		wf.Name, wf.Description, stepsJSON, wf.IsPublic, time.Now().UTC(), wf.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("workflow %q not found", wf.ID))
	}
	return nil
}

// --- Executions ---

// CreateExecution inserts a new execution record.
func (s *PgStore) CreateExecution(ctx context.Context, exec model.Execution) error {
	inputJSON, err := json.Marshal(exec.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := json.Marshal(exec.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	failureJSON, err := marshalFailure(exec.Failure)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflow_executions (
			id, workflow_id, user_id, input, output, status, failure, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		exec.ID, exec.WorkflowID, exec.UserID, inputJSON, outputJSON,
		exec.Status, failureJSON, exec.CreatedAt, exec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *PgStore) GetExecution(ctx context.Context, id string) (model.Execution, error) {
	var exec model.Execution
	var inputJSON, outputJSON, failureJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, workflow_id, user_id, input, output, status, failure, created_at, updated_at
		FROM workflow_executions
		WHERE id = $1`,
		id,
	).Scan(
		&exec.ID, &exec.WorkflowID, &exec.UserID, &inputJSON, &outputJSON,
		&exec.Status, &failureJSON, &exec.CreatedAt, &exec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return model.Execution{}, model.NewNotFoundError(fmt.Sprintf("execution %q not found", id))
	}
	if err != nil {
		return model.Execution{}, fmt.Errorf("query execution: %w", err)
	}

	if err := unmarshalExecutionPayloads(&exec, inputJSON, outputJSON, failureJSON); err != nil {
		return model.Execution{}, err
	}
	return exec, nil
}

// UpdateExecution persists an execution's status, output, and failure in a
// single write.
func (s *PgStore) UpdateExecution(ctx context.Context, exec model.Execution) error {
	outputJSON, err := json.Marshal(exec.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	failureJSON, err := marshalFailure(exec.Failure)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE workflow_executions SET
			output = $1,
			status = $2,
			failure = $3,
			updated_at = $4
		WHERE id = $5`,
		outputJSON, exec.Status, failureJSON, time.Now().UTC(), exec.ID,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(fmt.Sprintf("execution %q not found", exec.ID))
	}
	return nil
}

// ListExecutions returns executions of a workflow, newest first.
func (s *PgStore) ListExecutions(ctx context.Context, workflowID string) ([]model.Execution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workflow_id, user_id, input, output, status, failure, created_at, updated_at
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY created_at DESC`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var executions []model.Execution
	for rows.Next() {
		var exec model.Execution
		var inputJSON, outputJSON, failureJSON []byte
		if err := rows.Scan(
			&exec.ID, &exec.WorkflowID, &exec.UserID, &inputJSON, &outputJSON,
			&exec.Status, &failureJSON, &exec.CreatedAt, &exec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		if err := unmarshalExecutionPayloads(&exec, inputJSON, outputJSON, failureJSON); err != nil {
			return nil, err
		}
		executions = append(executions, exec)
	}
	return executions, rows.Err()
}

// AppendEvent adds an event to an execution's audit trail.
func (s *PgStore) AppendEvent(ctx context.Context, event model.ExecutionEvent) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO execution_events (
			id, execution_id, ordinal, tool_id, event, data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.ExecutionID, event.Ordinal, event.ToolID,
		event.Event, dataJSON, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert execution event: %w", err)
	}
	return nil
}

// GetEvents retrieves all events for an execution in timestamp order.
func (s *PgStore) GetEvents(ctx context.Context, executionID string) ([]model.ExecutionEvent, error) {
	// Verify the execution exists so missing IDs return NOT_FOUND instead
	// of an empty list.
	if _, err := s.GetExecution(ctx, executionID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, execution_id, ordinal, tool_id, event, data, created_at
		FROM execution_events
		WHERE execution_id = $1
		ORDER BY created_at ASC`,
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query execution events: %w", err)
	}
	defer rows.Close()

	var events []model.ExecutionEvent
	for rows.Next() {
		var evt model.ExecutionEvent
		var dataJSON []byte
		if err := rows.Scan(
			&evt.ID, &evt.ExecutionID, &evt.Ordinal, &evt.ToolID,
			&evt.Event, &dataJSON, &evt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan execution event: %w", err)
		}
		if dataJSON != nil {
			if err := json.Unmarshal(dataJSON, &evt.Data); err != nil {
				return nil, fmt.Errorf("unmarshal event data: %w", err)
			}
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// marshalFailure encodes a failure descriptor, preserving NULL for none.
func marshalFailure(failure *model.StepFailure) ([]byte, error) {
	if failure == nil {
		return nil, nil
	}
	b, err := json.Marshal(failure)
	if err != nil {
		return nil, fmt.Errorf("marshal failure: %w", err)
	}
	return b, nil
}

func unmarshalExecutionPayloads(exec *model.Execution, inputJSON, outputJSON, failureJSON []byte) error {
	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &exec.Input); err != nil {
			return fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &exec.Output); err != nil {
			return fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if failureJSON != nil {
		exec.Failure = &model.StepFailure{}
		if err := json.Unmarshal(failureJSON, exec.Failure); err != nil {
			return fmt.Errorf("unmarshal failure: %w", err)
		}
	}
	return nil
}
