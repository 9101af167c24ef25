// simulate steps the behavior engine headlessly with a scripted
// viewer, printing state snapshots. Useful for eyeballing behavior
// without a renderer attached.
package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/carl0967/vrm-chat-space/internal/config"
	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/avatar"
	"github.com/carl0967/vrm-chat-space/pkg/behavior"
	"github.com/carl0967/vrm-chat-space/pkg/clips"
)

func main() {
	seconds := flag.Float64("seconds", 30, "Simulated seconds to run")
	action := flag.String("action", "comeHereFront", "Action to trigger mid-run")
	at := flag.Float64("at", 10, "Simulated second to trigger the action")
	flag.Parse()

	log.Init(os.Getenv("LOG_LEVEL"))

	tuning := config.Default()
	catalog := clips.NewCatalog()
	if err := catalog.LoadBuiltIn(); err != nil {
		stdlog.Fatalf("built-in clip load failed: %v", err)
	}

	rig := avatar.NewSimRig()
	viewerHead := avatar.Vec3{X: 0, Y: 1.6, Z: 2}

	engine := behavior.New(behavior.Deps{
		Avatar:   func() avatar.Handle { return rig },
		Viewer:   func() (avatar.Vec3, bool) { return viewerHead, true },
		Resolver: clips.NewCatalogResolver(catalog),
		Status:   func(msg string) { fmt.Printf("  status: %s\n", msg) },
		Tuning:   &tuning,
	})

	engine.HandleAvatarReady()

	dt := 1.0 / tuning.TickRate
	ticks := int(*seconds / dt)
	triggerTick := int(*at / dt)
	reportEvery := int(1.0 / dt)

	for i := 0; i < ticks; i++ {
		if i == triggerTick {
			if err := engine.ExecuteAction(*action); err != nil {
				fmt.Printf("  action %s rejected: %v\n", *action, err)
			}
		}
		engine.Update(dt)

		if i%reportEvery == 0 {
			s := engine.State()
			fmt.Printf("t=%5.1fs mode=%-6s pos=(%.2f, %.2f) yaw=%5.2f clip=%s\n",
				float64(i)*dt, s.Mode, s.Position.X, s.Position.Z, s.Yaw, s.Playback.Label)
		}
	}

	s := engine.State()
	fmt.Printf("final: pos=(%.2f, %.2f) yaw=%.2f mode=%s\n",
		s.Position.X, s.Position.Z, s.Yaw, s.Mode)
}
