package dispatchlog

import (
	"errors"
	"strings"
	"time"

	dbmodel "todoagent/internal/db"

	"gorm.io/gorm"
)

const (
	KindDispatch = "dispatch"
	KindCallback = "callback"

	OutcomeOK             = "ok"
	OutcomeGatewayError   = "gateway_error"
	OutcomeMalformedReply = "malformed_reply"
	OutcomeTransportError = "transport_error"
	OutcomeStoreError     = "store_error"
)

type Entry struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	ResponseID string    `json:"response_id,omitempty"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Error      string    `json:"error,omitempty"`
	Warning    string    `json:"warning,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore uses a shared DB. Caller owns closing it.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Record(e Entry) error {
	if s == nil || s.db == nil {
		return errors.New("dispatch log is not initialized")
	}
	kind := strings.TrimSpace(e.Kind)
	if kind == "" {
		return errors.New("kind is required")
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	row := dbmodel.Dispatch{
		TaskID:     strings.TrimSpace(e.TaskID),
		ResponseID: strings.TrimSpace(e.ResponseID),
		Kind:       kind,
		Outcome:    strings.TrimSpace(e.Outcome),
		HTTPStatus: e.HTTPStatus,
		ErrorText:  e.Error,
		Warning:    e.Warning,
		CreatedAt:  created.UTC().UnixMilli(),
	}
	return s.db.Create(&row).Error
}

// List returns the newest entries first.
func (s *Store) List(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("dispatch log is not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows := make([]dbmodel.Dispatch, 0, limit)
	if err := s.db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ID:         row.ID,
			TaskID:     row.TaskID,
			ResponseID: row.ResponseID,
			Kind:       row.Kind,
			Outcome:    row.Outcome,
			HTTPStatus: row.HTTPStatus,
			Error:      row.ErrorText,
			Warning:    row.Warning,
			CreatedAt:  time.UnixMilli(row.CreatedAt).UTC(),
		})
	}
	return entries, nil
}
