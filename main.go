package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aigateway/catalog"
	"aigateway/gwconfig"
	"aigateway/server"
	"aigateway/upstream"
)

func main() {
	fmt.Println(GetBuildInfo())
	fmt.Println()

	envPath := os.Getenv("AIGATEWAY_ENV_FILE")
	if envPath == "" {
		envPath = ".env"
	}
	cfg, err := gwconfig.LoadFromEnv(envPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	directProxy := upstream.NewHTTPDirectProxy(cfg.HealthManager, time.Duration(cfg.DefaultConnectionTimeout)*time.Second, 3*time.Minute)
	directProxy.RatePerSecond = cfg.DirectRatePerSecond

	if janitor, err := cfg.HealthManager.StartJanitor("@every 1m"); err != nil {
		log.Printf("circuit breaker janitor not started: %v", err)
	} else if janitor != nil {
		defer janitor.Stop()
	}

	if watcher, err := cfg.WatchModelDescriptions(); err != nil {
		log.Printf("model description watcher not started: %v", err)
	} else if watcher != nil {
		defer watcher.Close()
	}

	var alternateProxy upstream.AlternateProxy
	if cfg.AlternateEnabled {
		alternateProxy = upstream.NewHTTPAlternateProxy(
			true,
			cfg.AlternateSupportedModels,
			os.Getenv("ALTERNATE_BACKEND_ENDPOINT"),
			upstream.ServiceAccount{
				Email:      os.Getenv("ALTERNATE_SERVICE_ACCOUNT_EMAIL"),
				PrivateKey: []byte(os.Getenv("ALTERNATE_SERVICE_ACCOUNT_KEY")),
				ProjectID:  os.Getenv("ALTERNATE_PROJECT_ID"),
			},
			[]string{"https://www.googleapis.com/auth/cloud-platform"},
		)
	} else {
		alternateProxy = upstream.NewHTTPAlternateProxy(false, nil, "", upstream.ServiceAccount{}, nil)
	}

	credentials := &configCredentialPool{cfg: cfg}
	settings := &configSettingsStore{cfg: cfg}

	baseModels := buildBaseModels(cfg)

	srv := server.NewServer(baseModels, credentials, settings, directProxy, alternateProxy, cfg.SearchEnabled, cfg.AlternateEnabled, cfg.KeepAliveEnabled)
	srv.DescriptionFor = cfg.DescriptionFor

	mux := http.NewServeMux()
	mux.Handle("/", srv.Routes())
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses can run indefinitely; the keep-alive pump is the real timeout
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("aigateway listening on :%s (search=%v alternate=%v keepalive=%v)", cfg.Port, cfg.SearchEnabled, cfg.AlternateEnabled, cfg.KeepAliveEnabled)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// buildBaseModels reads the comma-separated base model id list the direct
// backend is known to serve, used as catalog.Synthesize's input.
func buildBaseModels(cfg *gwconfig.Config) []catalog.BaseModel {
	raw := os.Getenv("DIRECT_BASE_MODELS")
	if raw == "" {
		raw = "gemini-2.5-flash-preview,gemini-2.5-pro"
	}
	var bases []catalog.BaseModel
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		bases = append(bases, catalog.BaseModel{ID: id, SupportsAlternate: cfg.AlternateEnabled})
	}
	return bases
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
