package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmachile/medagent/agent"
	"github.com/farmachile/medagent/api"
	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/directory"
	"github.com/farmachile/medagent/drugindex"
	"github.com/farmachile/medagent/llm"
	"github.com/farmachile/medagent/nlu"
	"github.com/farmachile/medagent/session"
	"github.com/farmachile/medagent/websocket"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.LoadEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	lex, err := config.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		logger.Fatalf("load lexicon: %v", err)
	}

	caps := buildCapabilities(*cfg, logger)
	sources := agent.Sources{
		Locales: directory.NewLocales(*cfg),
		OnDuty:  directory.NewOnDuty(*cfg),
	}
	if index, err := drugindex.NewFromConfig(*cfg); err != nil {
		logger.Printf("drug index unavailable: %v", err)
	} else {
		sources.Drugs = index
	}

	store := session.NewMemoryStore(cfg.SessionTTL)
	stop := make(chan struct{})
	defer close(stop)
	store.StartSweep(time.Minute, stop)

	a := agent.New(*cfg, lex, caps, sources, store)

	traces := websocket.NewTraceServer(cfg.WSPort)
	if err := traces.Start(); err != nil {
		logger.Fatalf("trace server: %v", err)
	}
	defer traces.Stop()
	a.SetTracer(traces)
	logger.Printf("trace stream on ws://localhost:%d/ws", cfg.WSPort)

	srv := api.NewServer(a, cfg.APIPort)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Println("shutting down")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		logger.Printf("api server stopped: %v", err)
	}
}

// buildCapabilities wires the LLM-backed stages. Without an API key the
// pipeline runs on its heuristics alone, which is only acceptable when
// explicitly opted in.
func buildCapabilities(cfg config.Config, logger *log.Logger) agent.Capabilities {
	client, err := llm.NewFromConfig(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrLLMDisabled) && cfg.AllowNoLLMKey {
			logger.Println("no LLM key, running heuristic-only")
			return agent.Capabilities{}
		}
		logger.Fatalf("llm client: %v", err)
	}

	router, err := nlu.NewLLMRouter(client)
	if err != nil {
		logger.Fatalf("router: %v", err)
	}
	return agent.Capabilities{
		Scope:      nlu.NewLLMScope(client),
		Dosage:     nlu.NewLLMDosage(client),
		Router:     router,
		DrugIntent: nlu.NewLLMDrugIntent(client),
	}
}
