package xrun_test

import (
	"context"
	"fmt"
	"time"

	"github.com/Solosh94/a1tools-sub006/pkg/lifecycle/xrun"
)

func ExampleRun() {
	rounds := 0
	err := xrun.Run(context.Background(), func(g *xrun.Group) {
		g.Go("tick", xrun.Ticker(time.Millisecond, true, func(context.Context) error {
			rounds++
			if rounds == 3 {
				g.Cancel(nil)
				return context.Canceled
			}
			return nil
		}))
	}, xrun.WithoutSignalHandler())
	fmt.Println(err, rounds)
	// Output: <nil> 3
}
