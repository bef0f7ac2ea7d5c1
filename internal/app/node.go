package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/exec"     //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/fs"       //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/manifest" //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/status"   //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized application components the CLI layer
// needs.
type Components struct {
	App    *App
	Logger ports.Logger
	Status *status.Recorder
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.NodeID,
			logger.NodeID,
			status.NodeID,
			exec.NodeID,
			manifest.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			fsys, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			recorder, err := graft.Dep[*status.Recorder](ctx)
			if err != nil {
				return nil, err
			}

			queueFactory, err := graft.Dep[*exec.Factory](ctx)
			if err != nil {
				return nil, err
			}

			loader, err := graft.Dep[*manifest.Loader](ctx)
			if err != nil {
				return nil, err
			}

			return New(fsys, log, recorder, queueFactory, loader), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			status.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			recorder, err := graft.Dep[*status.Recorder](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: application, Logger: log, Status: recorder}, nil
		},
	})
}
