package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"

	"github.com/inspiredanalyst/submanager-server/internal/lifecycle"
	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/inspiredanalyst/submanager-server/internal/repository"
	"github.com/inspiredanalyst/submanager-server/internal/store"
	"github.com/inspiredanalyst/submanager-server/internal/sync"
	"github.com/inspiredanalyst/submanager-server/internal/utils"
	"github.com/inspiredanalyst/submanager-server/internal/view"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors mapped to HTTP statuses at the API layer
var (
	ErrInvalidPIN     = errors.New("invalid PIN")
	ErrSheetExists    = errors.New("sheet already exists")
	ErrInvalidSheet   = errors.New("invalid sheet definition")
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownPlan    = errors.New("unknown plan tier")
	ErrInvalidDate    = errors.New("invalid date")
	ErrNoInvoice      = errors.New("invoices require a default-schema record")
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Sheet operations
	ListSheets(ctx context.Context) (*models.SheetListResponse, error)
	CreateSheet(ctx context.Context, req models.CreateSheetRequest) (*models.SheetResponse, error)

	// Record operations
	ListRecords(ctx context.Context, sheetName, search, filter string) (*models.RecordListResponse, error)
	AddRecord(ctx context.Context, sheetName string, req models.AddRecordRequest) (*models.RecordResponse, error)
	DeleteRecord(ctx context.Context, sheetName, recordID string) (bool, error)
	RenewRecord(ctx context.Context, sheetName, recordID string) (*models.RecordResponse, error)

	// Sync operations
	Refresh(ctx context.Context, sheetName string) error
	Status(ctx context.Context) *models.StatusResponse

	// Invoice data
	Invoice(ctx context.Context, sheetName, recordID string) (*models.InvoiceResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	store         *store.Store
	engine        *sync.Engine
	logger        *utils.Logger
	pinHash       []byte
	jwtSecret     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	st *store.Store,
	engine *sync.Engine,
	logger *utils.Logger,
	jwtSecret string,
	operatorPIN string,
) (*DefaultService, error) {
	pinHash, err := bcrypt.GenerateFromPassword([]byte(operatorPIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing operator PIN: %w", err)
	}

	return &DefaultService{
		repo:          repo,
		store:         st,
		engine:        engine,
		logger:        logger,
		pinHash:       pinHash,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
		now:           time.Now,
	}, nil
}

// SchemaResolver returns a repository-backed schema lookup for the sync
// engine. Sheets without a stored descriptor resolve to the default
// schema.
func SchemaResolver(repo repository.Repository) sync.SchemaResolver {
	return func(ctx context.Context, sheetName string) (models.Schema, error) {
		sheet, err := repo.GetSheet(ctx, sheetName)
		if err != nil {
			return models.Schema{}, fmt.Errorf("error getting sheet %q: %w", sheetName, err)
		}
		if sheet == nil {
			return models.DefaultSchema(), nil
		}
		return sheet.Schema(), nil
	}
}

// Authentication methods
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := bcrypt.CompareHashAndPassword(s.pinHash, []byte(req.Pin)); err != nil {
		return nil, ErrInvalidPIN
	}

	token, err := s.generateJWT()
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Sheet operations
func (s *DefaultService) ListSheets(ctx context.Context) (*models.SheetListResponse, error) {
	local, err := s.repo.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing sheets: %w", err)
	}

	known := make(map[string]models.Schema, len(local))
	names := make([]string, 0, len(local))
	for _, sheet := range local {
		known[sheet.Name] = sheet.Schema()
		names = append(names, sheet.Name)
	}

	// Union with the backend's list; remote-only names resolve to the
	// default schema until a descriptor is created for them.
	merged := s.engine.SheetNames(ctx, names)

	infos := make([]models.SheetInfo, 0, len(merged))
	for _, name := range merged {
		schema, ok := known[name]
		if !ok {
			schema = models.DefaultSchema()
		}
		infos = append(infos, models.SheetInfo{
			Name:    name,
			Type:    schema.Type,
			Columns: schema.Columns,
		})
	}

	return &models.SheetListResponse{Status: "success", Sheets: infos}, nil
}

func (s *DefaultService) CreateSheet(ctx context.Context, req models.CreateSheetRequest) (*models.SheetResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: blank name", ErrInvalidSheet)
	}

	existing, err := s.repo.GetSheet(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("error checking sheet existence: %w", err)
	}
	if existing != nil {
		return nil, ErrSheetExists
	}

	columns := []string{}
	if req.Type == models.SchemaCustom {
		// Blank column entries from the creation form are filtered out
		// before the descriptor is persisted.
		for _, col := range req.Columns {
			if trimmed := strings.TrimSpace(col); trimmed != "" {
				columns = append(columns, trimmed)
			}
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("%w: custom sheet needs at least one column", ErrInvalidSheet)
		}
		if len(columns) > models.MaxCustomColumns {
			return nil, fmt.Errorf("%w: at most %d columns", ErrInvalidSheet, models.MaxCustomColumns)
		}
	}

	sheet := &models.Sheet{
		Name:       name,
		SchemaType: req.Type,
		Columns:    pq.StringArray(columns),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateSheet(ctx, sheet); err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}

	// Push an empty collection so the backend creates the sheet
	// structure. Failure only degrades connectivity; the sheet exists
	// locally either way.
	if err := s.engine.Push(ctx, name, []models.Record{}); err != nil {
		s.logger.Info("Initial push for new sheet %q failed: %v", name, err)
	}

	return &models.SheetResponse{
		Status: "success",
		Sheet:  models.SheetInfo{Name: name, Type: req.Type, Columns: columns},
	}, nil
}

// Record operations
func (s *DefaultService) ListRecords(ctx context.Context, sheetName, search, filter string) (*models.RecordListResponse, error) {
	if err := s.ensureActive(ctx, sheetName); err != nil {
		return nil, err
	}

	schema, err := s.resolveSchema(ctx, sheetName)
	if err != nil {
		return nil, err
	}

	snapshot := s.store.Snapshot()
	now := s.now()

	views := view.Project(snapshot, schema, search, filter, now)
	stats := view.ComputeStats(view.Project(snapshot, schema, "", "", now))

	return &models.RecordListResponse{
		Status:  "success",
		Sheet:   sheetName,
		Schema:  schema,
		Records: views,
		Stats:   stats,
	}, nil
}

func (s *DefaultService) AddRecord(ctx context.Context, sheetName string, req models.AddRecordRequest) (*models.RecordResponse, error) {
	if err := s.ensureActive(ctx, sheetName); err != nil {
		return nil, err
	}

	schema, err := s.resolveSchema(ctx, sheetName)
	if err != nil {
		return nil, err
	}

	rec, err := s.buildRecord(schema, req)
	if err != nil {
		return nil, err
	}

	// Optimistic: apply locally first, then persist and push. The
	// operator's edit stays visible even if the push fails.
	added := s.store.Add(rec)
	synced := s.persistAndPush(ctx, sheetName)

	return &models.RecordResponse{Status: "success", Record: added, Synced: synced}, nil
}

func (s *DefaultService) DeleteRecord(ctx context.Context, sheetName, recordID string) (bool, error) {
	if err := s.ensureActive(ctx, sheetName); err != nil {
		return false, err
	}

	if !s.store.Remove(recordID) {
		return false, ErrRecordNotFound
	}

	return s.persistAndPush(ctx, sheetName), nil
}

func (s *DefaultService) RenewRecord(ctx context.Context, sheetName, recordID string) (*models.RecordResponse, error) {
	if err := s.ensureActive(ctx, sheetName); err != nil {
		return nil, err
	}

	rec, found, renewed := s.store.Renew(recordID, 1)
	if !found {
		return nil, ErrRecordNotFound
	}
	if !renewed {
		// No end date, nothing to advance or sync.
		return &models.RecordResponse{Status: "success", Record: rec, Synced: true}, nil
	}

	synced := s.persistAndPush(ctx, sheetName)
	return &models.RecordResponse{Status: "success", Record: rec, Synced: synced}, nil
}

// Sync operations
func (s *DefaultService) Refresh(ctx context.Context, sheetName string) error {
	if s.store.ActiveSheet() != sheetName {
		return s.ensureActive(ctx, sheetName)
	}
	return s.engine.Refresh(ctx, sheetName)
}

func (s *DefaultService) Status(ctx context.Context) *models.StatusResponse {
	status := s.engine.Status()

	resp := &models.StatusResponse{
		Status:      "success",
		Mode:        status.Mode,
		Connected:   status.Connected,
		ActiveSheet: status.ActiveSheet,
	}
	if !status.LastSyncedAt.IsZero() {
		resp.LastSyncedAt = status.LastSyncedAt.Format(time.RFC3339)
	}
	return resp
}

// Invoice returns the data behind a record's invoice. Rendering is the
// browser's job.
func (s *DefaultService) Invoice(ctx context.Context, sheetName, recordID string) (*models.InvoiceResponse, error) {
	if err := s.ensureActive(ctx, sheetName); err != nil {
		return nil, err
	}

	for _, rec := range s.store.Snapshot() {
		if rec.ID != recordID {
			continue
		}
		if rec.Default == nil {
			return nil, ErrNoInvoice
		}
		f := rec.Default
		return &models.InvoiceResponse{
			Status:      "success",
			Receipt:     fmt.Sprintf("#%04d", rand.Intn(10000)),
			BilledTo:    f.Username,
			TxID:        f.TxID,
			Plan:        f.Plan,
			PeriodStart: f.StartDate,
			PeriodEnd:   f.EndDate,
			Amount:      f.Amount,
			IssuedAt:    lifecycle.FormatDate(s.now().UTC()),
		}, nil
	}
	return nil, ErrRecordNotFound
}

// Helper methods

// buildRecord shapes an incoming request into a record under the sheet's
// schema. A record never carries fields outside its schema plus id.
func (s *DefaultService) buildRecord(schema models.Schema, req models.AddRecordRequest) (models.Record, error) {
	if schema.IsCustom() {
		values := make(map[string]string, len(schema.Columns))
		for _, col := range schema.Columns {
			values[col] = req.Values[col]
		}
		return models.Record{Custom: values}, nil
	}

	plan := req.Plan
	if plan == "" {
		plan = models.TierPremium
	}
	price, ok := models.TierPrices[plan]
	if !ok {
		return models.Record{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	amount := price
	if req.Amount != nil {
		amount = *req.Amount
	}

	startDate := strings.TrimSpace(req.StartDate)
	if startDate == "" {
		startDate = lifecycle.FormatDate(s.now().UTC())
	}

	endDate := strings.TrimSpace(req.EndDate)
	if endDate == "" {
		start, ok := lifecycle.ParseDate(startDate)
		if !ok {
			return models.Record{}, fmt.Errorf("%w: start date %q", ErrInvalidDate, startDate)
		}
		months := req.Months
		if months <= 0 {
			months = 1
		}
		endDate = lifecycle.FormatDate(lifecycle.AddMonths(start, months))
	}

	return models.Record{
		Default: &models.DefaultFields{
			Username:  req.Username,
			DiscordID: req.DiscordID,
			TxID:      req.TxID,
			Plan:      plan,
			Amount:    amount,
			StartDate: startDate,
			EndDate:   endDate,
		},
	}, nil
}

// ensureActive makes sheetName the store's active sheet, seeding from the
// local snapshot so records stay available when the backend fetch fails.
func (s *DefaultService) ensureActive(ctx context.Context, sheetName string) error {
	if s.store.ActiveSheet() == sheetName {
		return nil
	}

	records, err := s.repo.GetRecords(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("error loading snapshot for sheet %q: %w", sheetName, err)
	}
	s.store.SetActiveSheet(sheetName, records)

	if err := s.engine.Refresh(ctx, sheetName); err != nil {
		s.logger.Info("Refresh after switching to sheet %q failed, serving local records: %v", sheetName, err)
	}
	return nil
}

func (s *DefaultService) resolveSchema(ctx context.Context, sheetName string) (models.Schema, error) {
	return SchemaResolver(s.repo)(ctx, sheetName)
}

// persistAndPush saves the current collection locally and pushes it to the
// backend. Push failure is reported through the return value; the local
// state is never rolled back.
func (s *DefaultService) persistAndPush(ctx context.Context, sheetName string) bool {
	snapshot := s.store.Snapshot()

	if err := s.repo.SaveRecords(ctx, sheetName, snapshot); err != nil {
		s.logger.Error("Failed to persist records for sheet %q: %v", sheetName, err)
	}

	if err := s.engine.Push(ctx, sheetName, snapshot); err != nil {
		s.logger.Error("Push for sheet %q failed, keeping local state: %v", sheetName, err)
		return false
	}
	return true
}

func (s *DefaultService) generateJWT() (string, error) {
	expirationTime := s.now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": "operator",
		"exp": expirationTime.Unix(),
		"iat": s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
