// avatard runs the avatar behavior engine behind a web control
// surface, driving a simulated rig until a real renderer connects.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/behavior"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
	"github.com/carl0967/vrm-chat-space/pkg/web"
)

func main() {
	port := flag.String("port", "8080", "HTTP listen port")
	configPath := flag.String("config", "tuning.yaml", "Tuning config file (optional)")
	clipDir := flag.String("clips", "", "Directory of extra animation clips")
	clipBase := flag.String("clip-url", "", "Base URL for remote clip resolution")
	viewerX := flag.Float64("viewer-x", 0, "Viewer X position")
	viewerY := flag.Float64("viewer-y", 1.6, "Viewer head height")
	viewerZ := flag.Float64("viewer-z", 2, "Viewer Z position")
	flag.Parse()

	log.Init(os.Getenv("LOG_LEVEL"))

	if env := os.Getenv("PORT"); env != "" && *port == "8080" {
		*port = env
	}

	tuning, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("config error: %v", err)
	}

	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		stdlog.Fatalf("built-in clip load failed: %v", err)
	}
	if *clipDir != "" {
		if err := catalog.LoadCustomDir(*clipDir); err != nil {
			stdlog.Fatalf("clip dir load failed: %v", err)
		}
	}

	var resolver clips.Resolver = clips.NewCatalogResolver(catalog)
	if *clipBase != "" {
		resolver = clips.NewRemoteResolver(*clipBase, nil)
	}

	rig := avatar.NewSimRig()
	viewerHead := avatar.Vec3{X: *viewerX, Y: *viewerY, Z: *viewerZ}

	var server *web.Server
	engine := behavior.New(behavior.Deps{
		Avatar: func() avatar.Handle { return rig },
		Viewer: func() (avatar.Vec3, bool) { return viewerHead, true },
		Resolver: resolver,
		Status: func(msg string) {
			if server != nil {
				server.PushStatus(msg)
			}
		},
		Tuning: &tuning,
	})
	server = web.NewServer(*port, engine)

	watcher, err := config.Watch(*configPath,
		func(t config.Tuning) {
			engine.ApplyTuning(t)
			log.Info("tuning reloaded", "path", *configPath)
		},
		func(err error) {
			log.Warn("tuning reload failed", "error", err)
		})
	if err != nil {
		log.Warn("config watch disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine.HandleAvatarReady()
	go engine.Run(ctx)

	if err := server.Start(ctx); err != nil {
		stdlog.Fatalf("web server error: %v", err)
	}
}
