// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metatracer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blinklabs-io/metatracer/api"
	"github.com/blinklabs-io/metatracer/content"
	"github.com/blinklabs-io/metatracer/database"
	"github.com/blinklabs-io/metatracer/event"
	"github.com/blinklabs-io/metatracer/registry"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	registry      *registry.Registry
	content       *content.Store
	api           *api.Server
	auditSubs     map[event.EventType]event.EventSubscriberId
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	mu            sync.Mutex
	shutdownOnce  sync.Once
	stopped       bool
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config: cfg,
		done:   make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if n.config.privateKey == nil {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate account key: %w", err)
		}
		n.config.privateKey = key
		n.config.logger.Warn(
			"no private key configured, using an ephemeral account",
			"component", "node",
			"account", n.config.Account().Hex(),
		)
	}
	n.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	return n, nil
}

// Run opens storage, loads the registry and serves the JSON API. It blocks
// until ctx is cancelled or Stop is called.
func (n *Node) Run(ctx context.Context) error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return errors.New("node has been stopped")
	}
	n.mu.Unlock()
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		DataDir:        n.config.dataDir,
		DataDirSet:     n.config.dataDirSet,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	}
	db, err := database.New(dbConfig)
	if err != nil {
		// A commit timestamp mismatch still returns an open database
		if db != nil {
			if closeErr := db.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	if db == nil {
		return errors.New("empty database returned")
	}
	n.mu.Lock()
	n.db = db
	n.mu.Unlock()
	// Load registry state
	reg, err := registry.New(
		ctx,
		registry.WithStore(db.RecordStore()),
		registry.WithEventBus(n.eventBus),
		registry.WithLogger(n.config.logger),
		registry.WithPromRegistry(n.config.promRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	objects := content.New(
		db.Blob(),
		content.WithLogger(n.config.logger),
		content.WithPublicBaseURL(n.config.publicBaseURL),
	)
	auditSubs := n.subscribeAudit()
	// Configure API
	apiServer := api.New(
		api.Config{
			PromRegistry:    n.config.promRegistry,
			ListenAddress:   n.config.listenAddress,
			Version:         n.config.version,
			Account:         n.config.Account(),
			RegistryAddress: n.config.RegistryAddress(),
		},
		reg,
		objects,
		n.config.logger,
	)
	n.mu.Lock()
	n.registry = reg
	n.content = objects
	n.auditSubs = auditSubs
	n.api = apiServer
	n.mu.Unlock()
	if err := apiServer.Start(ctx); err != nil {
		return err
	}
	n.config.logger.Info(
		"node started",
		"component", "node",
		"account", n.config.Account().Hex(),
		"registry", n.config.RegistryAddress().Hex(),
		"records", reg.Len(),
	)

	// Wait for shutdown
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

// Registry returns the loaded registry, or nil before Run has opened it
func (n *Node) Registry() *registry.Registry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry
}

// APIAddr returns the bound address of the JSON API listener
func (n *Node) APIAddr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.api == nil {
		return ""
	}
	return n.api.Addr()
}

// subscribeAudit logs every committed registry change
func (n *Node) subscribeAudit() map[event.EventType]event.EventSubscriberId {
	logger := n.config.logger.With("component", "audit")
	handler := func(evt event.Event) {
		change, ok := evt.Data.(registry.Change)
		if !ok {
			return
		}
		logger.Info(
			"record "+change.Kind.String(),
			"record_id", change.RecordID.Hex(),
			"version", change.Version,
			"caller", change.Caller.Hex(),
			"uri", change.URI,
			"tx_hash", change.TxHash.Hex(),
		)
	}
	subs := make(map[event.EventType]event.EventSubscriberId)
	for _, evtType := range []event.EventType{
		registry.RecordCreatedEventType,
		registry.RecordUpdatedEventType,
	} {
		if subId := n.eventBus.SubscribeFunc(evtType, handler); subId != 0 {
			subs[evtType] = subId
		}
	}
	return subs
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	n.mu.Lock()
	n.stopped = true
	apiServer := n.api
	db := n.db
	auditSubs := n.auditSubs
	n.auditSubs = nil
	n.mu.Unlock()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	if apiServer != nil {
		if stopErr := apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain notifications
	for evtType, subId := range auditSubs {
		n.eventBus.Unsubscribe(evtType, subId)
	}
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close storage
	if db != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
