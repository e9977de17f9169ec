package commands

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcollier/studiobooks/internal/config"
	"github.com/jcollier/studiobooks/internal/database"
	"github.com/jcollier/studiobooks/internal/database/repository"
	"github.com/jcollier/studiobooks/internal/errs"
	"github.com/jcollier/studiobooks/internal/service"
)

// app holds everything a command needs once the database is open.
type app struct {
	cfg     config.Config
	ownerID string
	db      *sql.DB

	transactions *repository.TransactionRepo
	rules        *repository.RuleRepo
	matches      *repository.PendingMatchRepo

	engine     *service.MatchEngine
	approvals  *service.ApprovalQueue
	duplicates *service.DuplicateChecker
	ingest     *service.IngestService
}

func openApp(ownerFlag string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ownerID := strings.TrimSpace(ownerFlag)
	if ownerID == "" {
		ownerID = strings.TrimSpace(cfg.Owner.ID)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: pass --owner or set owner.id in config", errs.ErrUnauthorized)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	txRepo := repository.NewTransactionRepo(db)
	ruleRepo := repository.NewRuleRepo(db)
	matchRepo := repository.NewPendingMatchRepo(db)
	linkRepo := repository.NewTransactionLinkRepo(db)
	catRepo := repository.NewCategoryRepo(db)
	vendorRepo := repository.NewVendorRepo(db)
	staffRepo := repository.NewStaffRepo(db)

	return &app{
		cfg:          cfg,
		ownerID:      ownerID,
		db:           db,
		transactions: txRepo,
		rules:        ruleRepo,
		matches:      matchRepo,
		engine: &service.MatchEngine{
			Transactions: txRepo,
			Rules:        ruleRepo,
			Matches:      matchRepo,
		},
		approvals: &service.ApprovalQueue{
			Transactions: txRepo,
			Matches:      matchRepo,
			Rules:        ruleRepo,
			Categories:   catRepo,
			Vendors:      vendorRepo,
			Staff:        staffRepo,
		},
		duplicates: &service.DuplicateChecker{
			Transactions: txRepo,
			Links:        linkRepo,
		},
		ingest: &service.IngestService{Transactions: txRepo},
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// migrationsPath resolves the migrations directory relative to the working
// directory, falling back to the repo layout.
func migrationsPath() string {
	if p := os.Getenv("STUDIOBOOKS_MIGRATIONS"); p != "" {
		return p
	}
	return filepath.Join("internal", "database", "migrations")
}
