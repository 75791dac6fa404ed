package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"repo-explainer/internal/github"
	"repo-explainer/internal/openai"
)

// ProjectStore persists projects and their chat history in SQLite
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a new ProjectStore
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Create inserts a project and its seed chat history in one transaction
func (s *ProjectStore) Create(ctx context.Context, project *Project) error {
	analysisJSON, err := json.Marshal(project.Analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	fileListJSON, err := json.Marshal(project.FileList)
	if err != nil {
		return fmt.Errorf("failed to encode file list: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, owner, repo, source_url, analysis, file_list, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		project.ID,
		project.UserID,
		project.Owner,
		project.Repo,
		project.SourceURL,
		string(analysisJSON),
		string(fileListJSON),
		project.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	for _, turn := range project.ChatHistory {
		if err := insertTurn(ctx, tx, project.ID, turn); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a project by ID, including its full chat history
func (s *ProjectStore) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, owner, repo, source_url, analysis, file_list, created_at
		FROM projects
		WHERE id = ?
	`, id)

	return s.scanProject(ctx, row)
}

// FindByRepo retrieves the project a user already created for a repository.
// Used for the idempotent re-analysis short circuit.
func (s *ProjectStore) FindByRepo(ctx context.Context, userID, owner, repo string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, owner, repo, source_url, analysis, file_list, created_at
		FROM projects
		WHERE user_id = ? AND owner = ? AND repo = ?
	`, userID, owner, repo)

	return s.scanProject(ctx, row)
}

// ListByUser returns all projects owned by a user, newest first, without chat history
func (s *ProjectStore) ListByUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, owner, repo, source_url, analysis, file_list, created_at
		FROM projects
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var (
			project      Project
			analysisJSON string
			fileListJSON string
		)
		err := rows.Scan(
			&project.ID,
			&project.UserID,
			&project.Owner,
			&project.Repo,
			&project.SourceURL,
			&analysisJSON,
			&fileListJSON,
			&project.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if err := decodeProjectFields(&project, analysisJSON, fileListJSON); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

// AppendTurns appends chat turns to a project's history as one atomic update.
// Either every turn is stored or none is.
func (s *ProjectStore) AppendTurns(ctx context.Context, projectID string, turns []ChatTurn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	for _, turn := range turns {
		if err := insertTurn(ctx, tx, projectID, turn); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a user's project; chat history cascades via foreign key
func (s *ProjectStore) Delete(ctx context.Context, userID, projectID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM projects WHERE id = ? AND user_id = ?
	`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *ProjectStore) scanProject(ctx context.Context, row *sql.Row) (*Project, error) {
	var (
		project      Project
		analysisJSON string
		fileListJSON string
	)
	err := row.Scan(
		&project.ID,
		&project.UserID,
		&project.Owner,
		&project.Repo,
		&project.SourceURL,
		&analysisJSON,
		&fileListJSON,
		&project.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if err := decodeProjectFields(&project, analysisJSON, fileListJSON); err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.ChatHistory = history

	return &project, nil
}

func (s *ProjectStore) loadHistory(ctx context.Context, projectID string) ([]ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, ui_component, ui_data, created_at
		FROM chat_messages
		WHERE project_id = ?
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer rows.Close()

	var history []ChatTurn
	for rows.Next() {
		var (
			turn        ChatTurn
			uiComponent sql.NullString
			uiData      sql.NullString
		)
		err := rows.Scan(&turn.Role, &turn.Content, &uiComponent, &uiData, &turn.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turn.UIComponent = uiComponent.String
		if uiData.Valid && uiData.String != "" {
			turn.UIData = json.RawMessage(uiData.String)
		}
		history = append(history, turn)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat rows: %w", err)
	}

	return history, nil
}

func insertTurn(ctx context.Context, tx *sql.Tx, projectID string, turn ChatTurn) error {
	var uiData interface{}
	if len(turn.UIData) > 0 {
		uiData = string(turn.UIData)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (project_id, role, content, ui_component, ui_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		projectID,
		turn.Role,
		turn.Content,
		turn.UIComponent,
		uiData,
		turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat turn: %w", err)
	}

	return nil
}

func decodeProjectFields(project *Project, analysisJSON, fileListJSON string) error {
	var analysis openai.StructuredSummary
	if err := json.Unmarshal([]byte(analysisJSON), &analysis); err != nil {
		return fmt.Errorf("failed to decode analysis: %w", err)
	}
	project.Analysis = analysis

	var fileList []github.TreeEntry
	if err := json.Unmarshal([]byte(fileListJSON), &fileList); err != nil {
		return fmt.Errorf("failed to decode file list: %w", err)
	}
	project.FileList = fileList

	return nil
}
