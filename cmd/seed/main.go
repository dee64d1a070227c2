package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/seed"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/db"
)

func main() {
	var (
		doImport = flag.Bool("import", false, "import the fixtures")
		doDelete = flag.Bool("delete", false, "delete all data")
		dir      = flag.String("dir", "dev-data", "directory with *.yaml fixtures")
		sqlite   = flag.String("sqlite", "", "use this SQLite file instead of DATABASE_URL")
		reindex  = flag.Bool("reindex", false, "rebuild the search index after importing")
	)
	flag.Parse()

	if !*doImport && !*doDelete {
		log.Fatal("nothing to do: pass -import and/or -delete")
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var (
		gdb *gorm.DB
		err error
	)
	if *sqlite != "" {
		gdb, err = db.OpenSQLite(*sqlite)
	} else {
		gdb, err = db.Open(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if *doDelete {
		if err := seed.Delete(ctx, gdb); err != nil {
			log.Fatalf("delete: %v", err)
		}
		log.Println("data successfully deleted")
	}

	if !*doImport {
		return
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.yaml"))
	if err != nil || len(files) == 0 {
		log.Fatalf("no fixtures found in %s", *dir)
	}
	fixtures, err := seed.LoadFiles(files...)
	if err != nil {
		log.Fatalf("load fixtures: %v", err)
	}
	st, err := seed.Import(ctx, gdb, fixtures)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	log.Printf("imported %d categories, %d products, %d users, %d reviews", st.Categories, st.Products, st.Users, st.Reviews)

	if *reindex && cfg.Search.URL != "" {
		es, err := search.NewClient(cfg.Search.URL, cfg.Search.User, cfg.Search.Password)
		if err != nil {
			log.Fatalf("search: %v", err)
		}
		products := &service.ProductService{
			Repo:  &repo.GormRepo{DB: gdb},
			Index: &search.Index{ES: es, Name: cfg.Search.Index},
		}
		n, err := products.Reindex(ctx)
		if err != nil {
			log.Fatalf("reindex: %v", err)
		}
		log.Printf("indexed %d products", n)
	}
}
