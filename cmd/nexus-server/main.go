// HTTP API entry point.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrMan003/Nexus/internal/audit"
	"github.com/MrMan003/Nexus/internal/config"
	"github.com/MrMan003/Nexus/internal/design"
	"github.com/MrMan003/Nexus/internal/httpapi"
	"github.com/MrMan003/Nexus/internal/narrative"
	"github.com/MrMan003/Nexus/internal/pipeline"
	"github.com/MrMan003/Nexus/internal/recal"
	"github.com/MrMan003/Nexus/internal/sensor"
	"github.com/MrMan003/Nexus/internal/twin"
)

// #region main

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "", "record pipeline runs to this audit database (empty = off)")
	flag.Parse()

	_ = godotenv.Load()

	var store *audit.Store
	if *dbPath != "" {
		var err error
		store, err = audit.NewStore(*dbPath)
		if err != nil {
			log.Fatalf("open audit store: %v", err)
		}
		defer store.Close()
	}

	narrativeCfg := narrative.DefaultConfig()
	var (
		enricher recal.Enricher
		textgen  design.TextGen
		caller   twin.Caller
	)
	if narrativeCfg.Enabled && narrativeCfg.APIKey != "" {
		client := narrative.NewClient(narrativeCfg)
		enricher, textgen, caller = client, client, client
	} else {
		log.Println("narrative service disabled, deterministic fallbacks only")
	}

	sensorEngine := sensor.NewEngine(config.DefaultAlertThresholds())
	policy := recal.NewPolicy(config.DefaultSeverityThresholds(), enricher)
	gen := design.NewGenerator(textgen)
	twinEngine := twin.NewEngine(caller)
	pipe := pipeline.New(gen, twinEngine, sensorEngine, policy, store)

	server := httpapi.NewServer(sensorEngine, policy, gen, twinEngine, pipe)

	log.Printf("NEXUS API listening on %s", *addr)
	if err := http.ListenAndServe(*addr, server.Router(os.Stdout)); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// #endregion main
