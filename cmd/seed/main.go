package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"roomclean/internal/config"
	"roomclean/internal/database"
	"roomclean/internal/domain"
	"roomclean/internal/modules/catalog"
	"roomclean/internal/pkg/jwt"
	"roomclean/internal/pkg/logger"
	"roomclean/internal/repository"
)

type seedPackage struct {
	name        string
	description string
	price       int64
	extras      map[string]int64
}

var packages = []seedPackage{
	{
		name:        "Standard",
		description: "Dusting, floors, bathroom and kitchen surfaces",
		price:       150000,
		extras:      map[string]int64{"Ironing": 25000},
	},
	{
		name:        "Deep clean",
		description: "Standard plus inside cabinets, grout and appliances",
		price:       350000,
		extras:      map[string]int64{"Balcony": 40000, "Carpet shampoo": 75000},
	},
	{
		name:        "Move-out",
		description: "Empty apartment, every surface and fixture",
		price:       500000,
	},
}

// Extras offered with every package.
var globalExtras = map[string]int64{
	"Fridge":  30000,
	"Oven":    35000,
	"Windows": 45000,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	lg := logger.L()

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("database migrate failed", zap.Error(err))
	}

	ctx := context.Background()
	repo := repository.NewPackageRepository(db)

	n, err := repo.CountPackages(ctx)
	if err != nil {
		lg.Fatal("count packages failed", zap.Error(err))
	}
	if n > 0 {
		lg.Info("catalog already seeded, skipping", zap.Int64("packages", n))
	} else {
		seedCatalog(ctx, repo, lg)
		invalidateCache(ctx, cfg, repo, lg)
	}

	// There is no login flow in this service; print tokens for local testing.
	if !cfg.IsProdLike() {
		tokens := jwt.New(cfg.JWTSecret, cfg.JWTTTL)
		for _, u := range []struct {
			id   int64
			role domain.UserRole
		}{
			{1, domain.RoleAdmin},
			{10, domain.RoleCustomer},
			{11, domain.RoleCustomer},
		} {
			token, err := tokens.GenerateToken(u.id, string(u.role), cfg.DefaultLocale)
			if err != nil {
				lg.Fatal("token generation failed", zap.Error(err))
			}
			lg.Info("dev token", zap.Int64("user_id", u.id), zap.String("role", string(u.role)), zap.String("token", token))
		}
	}
}

func seedCatalog(ctx context.Context, repo *repository.PackageRepository, lg *zap.Logger) {
	now := time.Now().UTC()
	for _, sp := range packages {
		pkg := &domain.CleaningPackage{
			Name:        sp.name,
			Description: sp.description,
			BasePrice:   decimal.NewFromInt(sp.price),
			Active:      true,
			CreatedAt:   now,
		}
		if err := repo.Create(ctx, pkg); err != nil {
			lg.Fatal("create package failed", zap.String("name", sp.name), zap.Error(err))
		}
		for name, price := range sp.extras {
			createExtra(ctx, repo, lg, pkg.ID, name, price)
		}
		lg.Info("package created", zap.Int64("id", pkg.ID), zap.String("name", pkg.Name))
	}
	for name, price := range globalExtras {
		createExtra(ctx, repo, lg, 0, name, price)
	}
}

func createExtra(ctx context.Context, repo *repository.PackageRepository, lg *zap.Logger, packageID int64, name string, price int64) {
	extra := &domain.ExtraOption{PackageID: packageID, Name: name, Price: decimal.NewFromInt(price), Active: true}
	if err := repo.CreateExtra(ctx, extra); err != nil {
		lg.Fatal("create extra failed", zap.String("name", name), zap.Error(err))
	}
}

// invalidateCache drops a package list a running api may have cached.
func invalidateCache(ctx context.Context, cfg *config.Config, repo *repository.PackageRepository, lg *zap.Logger) {
	if cfg.RedisURL == "" {
		return
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		lg.Warn("invalid REDIS_URL, cache not invalidated", zap.Error(err))
		return
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	if err := catalog.NewService(repo, rdb, lg).Invalidate(ctx); err != nil {
		lg.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
