package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"dao-ledger.backend/internal/config"
	"dao-ledger.backend/internal/domain/entities"
	"dao-ledger.backend/internal/infrastructure/datasources"
	"dao-ledger.backend/internal/infrastructure/repositories"
	"dao-ledger.backend/pkg/jwt"
)

var openAdminDB = datasources.NewConnection

var openAdminSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

type daoProvisioner interface {
	ProvisionDAO(ctx context.Context, in entities.ProvisionDAOInput) (*entities.ProvisionedDAO, error)
	SetDisplayName(ctx context.Context, userID, name string) error
}

type adminDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (daoProvisioner, io.Closer, error)
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultAdminDeps() adminDeps {
	return adminDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (daoProvisioner, io.Closer, error) {
			db, err := openAdminDB(cfg.Database)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}

			sqlDB, err := openAdminSQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}
			if err := repositories.MigrateChatStore(db); err != nil {
				_ = sqlDB.Close()
				return nil, nil, fmt.Errorf("failed to migrate chat store: %w", err)
			}

			uow := repositories.NewUnitOfWork(db)
			return repositories.NewChatRepository(db, uow, cfg.Ledger.InitialWindow), sqlDB, nil
		},
		out: os.Stdout,
	}
}

const usage = "usage: dao-admin <provision|issue-token> [flags]"

func runAdmin(args []string, deps adminDeps) error {
	if deps.loadEnv == nil {
		deps.loadEnv = func() error { return godotenv.Load() }
	}
	if deps.loadCfg == nil {
		deps.loadCfg = config.Load
	}
	if deps.prepare == nil {
		deps.prepare = defaultAdminDeps().prepare
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}

	if len(args) == 0 {
		return fmt.Errorf(usage)
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := deps.loadCfg()

	switch args[0] {
	case "provision":
		return runProvision(args[1:], cfg, deps)
	case "issue-token":
		return runIssueToken(args[1:], cfg, deps.out)
	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}
}

func splitRooms(raw string) []string {
	var rooms []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func runProvision(args []string, cfg *config.Config, deps adminDeps) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	nameFlag := fs.String("name", "", "DAO name (required)")
	ownerFlag := fs.String("owner", cfg.Device.AccountID, "owner chat account id")
	ownerNameFlag := fs.String("owner-name", "", "display name to set for the owner (optional)")
	roomsFlag := fs.String("rooms", "general", "comma separated contribution rooms")
	valueFlag := fs.Float64("value", 0, "kudos value written to each contribution room topic")
	levelFlag := fs.Int("verification-level", 0, "power level required to verify contributions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *nameFlag == "" {
		return fmt.Errorf("--name is required")
	}
	if *ownerFlag == "" {
		return fmt.Errorf("--owner is required when DEVICE_ACCOUNT_ID is unset")
	}

	repo, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	ctx := context.Background()
	if *ownerNameFlag != "" {
		if err := repo.SetDisplayName(ctx, *ownerFlag, *ownerNameFlag); err != nil {
			return fmt.Errorf("failed to set owner display name: %w", err)
		}
	}

	out, err := repo.ProvisionDAO(ctx, entities.ProvisionDAOInput{
		Name:              *nameFlag,
		OwnerID:           *ownerFlag,
		ContributionRooms: splitRooms(*roomsFlag),
		ContributionValue: *valueFlag,
		VerificationLevel: *levelFlag,
	})
	if err != nil {
		return fmt.Errorf("failed provisioning dao: %w", err)
	}

	_, _ = fmt.Fprintf(deps.out, "Provisioned DAO %q for %s\n", out.DAO.Name, *ownerFlag)
	_, _ = fmt.Fprintf(deps.out, "dao_id=%s\n", out.DAO.ID)
	_, _ = fmt.Fprintf(deps.out, "dca_id=%s\n", out.DCA.ID)
	_, _ = fmt.Fprintf(deps.out, "gov_id=%s\n", out.GOV.ID)
	_, _ = fmt.Fprintf(deps.out, "ledger_id=%s\n", out.Ledger.ID)
	for _, room := range out.Contributions {
		_, _ = fmt.Fprintf(deps.out, "contribution_room=%s %s\n", room.ID, room.Name)
	}
	return nil
}

func runIssueToken(args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	accountFlag := fs.String("account", cfg.Device.AccountID, "chat account id the token acts as")
	roleFlag := fs.String("role", jwt.RoleOwner, "OWNER or OPERATOR")
	ttlFlag := fs.Duration("ttl", cfg.JWT.AccessExpiry, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *accountFlag == "" {
		return fmt.Errorf("--account is required when DEVICE_ACCOUNT_ID is unset")
	}
	role := strings.ToUpper(*roleFlag)
	if role != jwt.RoleOwner && role != jwt.RoleOperator {
		return fmt.Errorf("invalid role %q (allowed: %s, %s)", *roleFlag, jwt.RoleOwner, jwt.RoleOperator)
	}
	if *ttlFlag <= 0 {
		*ttlFlag = 24 * time.Hour
	}

	token, err := jwt.NewJWTService(cfg.JWT.Secret, *ttlFlag).GenerateToken(*accountFlag, role)
	if err != nil {
		return fmt.Errorf("failed issuing token: %w", err)
	}

	_, _ = fmt.Fprintf(out, "account=%s\n", *accountFlag)
	_, _ = fmt.Fprintf(out, "role=%s\n", role)
	_, _ = fmt.Fprintf(out, "expires_in=%s\n", ttlFlag.String())
	_, _ = fmt.Fprintf(out, "TOKEN=%s\n", token)
	return nil
}

func main() {
	if err := runAdmin(os.Args[1:], defaultAdminDeps()); err != nil {
		log.Fatal(err)
	}
}
