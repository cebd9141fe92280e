package app

import (
	"log"

	"tutorbot/internal/config"
	"tutorbot/internal/digest"
	"tutorbot/internal/httpx"
	"tutorbot/internal/server"
	"tutorbot/internal/session"
	"tutorbot/internal/storage/sqlite"
	"tutorbot/internal/tutor"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Provider=%s Model=%s Temperature=%.2f HistoryLimit=%d Timezone=%s ExternalHTTPTimeout=%s",
		cfg.LLMProvider,
		cfg.ModelName(),
		cfg.LLMTemperature,
		cfg.HistoryLimit,
		cfg.Timezone,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	sessions := session.NewStore(cfg.HistoryLimit)
	tut := tutor.New(cfg)

	digest.StartDigestScheduler(cfg, db)

	srv := server.New(cfg, db, sessions, tut)
	log.Printf("Starting Language Tutor on %s ...", cfg.ListenAddr)
	if err := srv.Run(); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
