package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentfleet/dispatcher/internal/agent"
	"github.com/agentfleet/dispatcher/internal/config"
	"github.com/agentfleet/dispatcher/internal/eventsink"
	"github.com/agentfleet/dispatcher/internal/llm"
	"github.com/agentfleet/dispatcher/internal/orchestrator"
	"github.com/agentfleet/dispatcher/internal/registry"
	"github.com/agentfleet/dispatcher/internal/store"
)

const fleetSnapshotInterval = 30 * time.Second

func main() {
	port := config.GetEnv("PORT", "8080")
	configPath := config.GetEnv("CONFIG_PATH", "")
	natsURL := config.GetEnv("NATS_URL", "")
	redisURL := config.GetEnv("REDIS_URL", "")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if base := config.GetEnv("COMPLETION_URL", ""); base != "" {
		cfg.Completion.BaseURL = base
	}
	if key := config.GetEnv("COMPLETION_API_KEY", ""); key != "" {
		cfg.Completion.APIKey = key
	}

	var sink eventsink.Sink
	if natsURL != "" {
		natsSink, err := eventsink.NewNATSSink(natsURL)
		if err != nil {
			log.Fatalf("Failed to initialize event sink: %v", err)
		}
		sink = natsSink
	} else {
		log.Println("NATS_URL not set, event trail kept in memory only")
		sink = eventsink.NewMemorySink()
	}

	var archive *store.TaskArchive
	if redisURL != "" {
		var err error
		archive, err = store.NewTaskArchive(redisURL)
		if err != nil {
			log.Fatalf("Failed to initialize task archive: %v", err)
		}
	} else {
		log.Println("REDIS_URL not set, task archive disabled")
	}

	client := llm.NewHTTPClient(cfg.Completion.BaseURL, cfg.Completion.APIKey)

	reg := registry.New()
	initCtx, cancelInit := context.WithTimeout(context.Background(), 60*time.Second)
	for _, agentCfg := range cfg.Agents {
		a := agent.New(agent.Config{
			ID:             agentCfg.ID,
			Name:           agentCfg.Name,
			Capabilities:   agentCfg.Capabilities,
			PrimaryModel:   agentCfg.PrimaryModel,
			SecondaryModel: agentCfg.SecondaryModel,
			TaskTimeout:    agentCfg.TaskTimeout.Std(),

			MaxConsecutiveModelFailures: agentCfg.MaxModelFailures,
		}, client, sink)
		if archive != nil {
			a.WithArchive(archive)
		}
		if err := reg.Register(a); err != nil {
			log.Fatalf("Failed to register agent %s: %v", agentCfg.ID, err)
		}
		// A failed probe leaves the agent in ERROR; the router skips it
		// and the rest of the fleet keeps serving.
		if err := a.Init(initCtx); err != nil {
			log.Printf("Agent %s failed initialization: %v", agentCfg.ID, err)
		}
	}
	cancelInit()

	rules := make([]orchestrator.KeywordRule, 0, len(cfg.Classifier.Categories))
	for _, category := range cfg.Classifier.Categories {
		rules = append(rules, orchestrator.KeywordRule{Category: category.Name, Keywords: category.Keywords})
	}
	classifier := orchestrator.NewClassifier(client, cfg.Classifier.Model, rules, cfg.Classifier.DefaultCategory)
	router := orchestrator.NewRouter(reg, cfg.Routing.Routes, cfg.Routing.DefaultAgent)
	orch := orchestrator.New(classifier, router, reg, sink)

	server := NewServer(reg, orch, archive)
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.Router(),
	}

	stopSnapshots := make(chan struct{})
	if archive != nil {
		go fleetSnapshotLoop(reg, archive, stopSnapshots)
	}

	go func() {
		log.Printf("Dispatcher starting on port %s with %d agents", port, len(cfg.Agents))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down dispatcher...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	close(stopSnapshots)

	// Let each drain worker finish its in-flight task.
	for _, a := range reg.List() {
		if err := a.Quiesce(ctx); err != nil {
			log.Printf("[%s] Shutdown with task still in flight: %v", a.ID(), err)
		}
	}

	if archive != nil {
		archive.Close()
	}
	sink.Close()
	log.Println("Dispatcher stopped")
}

func fleetSnapshotLoop(reg *registry.Registry, archive *store.TaskArchive, stop <-chan struct{}) {
	ticker := time.NewTicker(fleetSnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := archive.SaveFleetStatus(ctx, reg.SystemStatus()); err != nil {
				log.Printf("Failed to snapshot fleet status: %v", err)
			}
			cancel()
		case <-stop:
			return
		}
	}
}
