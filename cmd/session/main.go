// Command session runs a simulated breathing session against the full
// pipeline: synthetic sensor ticks through the belief estimator,
// adaptive controller, and safety envelope, journaled to SQLite.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/zenb-io/zenb/go-core/internal/agent"
	"github.com/zenb-io/zenb/go-core/internal/belief"
	"github.com/zenb-io/zenb/go-core/internal/config"
	"github.com/zenb-io/zenb/go-core/internal/engine"
	"github.com/zenb-io/zenb/go-core/internal/estimator"
	"github.com/zenb-io/zenb/go-core/internal/journal"
)

// #region main

func main() {
	ticks := flag.Int("ticks", 60, "number of simulated ticks to run")
	fast := flag.Bool("fast", false, "skip poll-interval sleeps")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	container := agent.NewContainer(
		agent.NewStrategy(agent.StrategyID(cfg.StrategyID)),
		cfg.StrategyVersion,
		cfg.ResourceQuota(),
	)

	eng := engine.New(cfg.EngineConfig(), j, container)

	nowUs := time.Now().UnixMicro()
	sid, err := eng.StartSession(nowUs, cfg.SessionMode)
	if err != nil {
		log.Fatalf("start session: %v", err)
	}

	fmt.Printf("Session %s started (mode=%s, strategy=%s@%s)\n",
		sid, cfg.SessionMode, cfg.StrategyID, cfg.StrategyVersion)

	est := estimator.NewEWMA(0.4)
	ctx := belief.Context{LocalHour: time.Now().Hour(), IsCharging: true}

	for i := 0; i < *ticks; i++ {
		x, phys := syntheticTick(i)
		rate := est.Ingest([]float32{*x.HRBpm, *x.RMSSD, *x.RRBpm}, nowUs)

		result, err := eng.Tick(nowUs, x, phys, ctx, rate)
		if err != nil {
			log.Printf("tick %d: %v", i, err)
			continue
		}

		line := fmt.Sprintf("[%03d] mode=%-7s conf=%.2f poll=%dms",
			i, result.Belief.Mode, result.Belief.Conf, result.PollIntervalMs)
		if result.Decision != nil {
			line += fmt.Sprintf("  -> rate %.2f bpm", result.Decision.TargetRateBPM)
		} else if !result.Verdict.Allowed && result.Verdict.Denial != "" {
			line += fmt.Sprintf("  (held: %s)", result.Verdict.Denial)
		}
		fmt.Println(line)

		if *fast {
			nowUs += result.PollIntervalMs * 1000
		} else {
			time.Sleep(time.Duration(result.PollIntervalMs) * time.Millisecond)
			nowUs = time.Now().UnixMicro()
		}
	}

	if err := eng.CompleteCycle(nowUs, 1); err != nil {
		log.Printf("complete cycle: %v", err)
	}

	hash, err := eng.Hash()
	if err != nil {
		log.Fatalf("hash aggregate: %v", err)
	}
	agg := eng.Aggregate()
	fmt.Printf("\nSession %s: %d events, hash %s\n", sid, agg.EventCount, hash)
}

// #endregion main

// #region synthetic

// syntheticTick produces a slow physiological drift: heart rate and
// respiration settle over the session the way a real downregulation
// session trends.
func syntheticTick(i int) (belief.SensorFeatures, belief.PhysioState) {
	t := float64(i)
	hr := float32(66 - 4*math.Tanh(t/40) + 2*math.Sin(t/7))
	rmssd := float32(38 + 10*math.Tanh(t/40) + 3*math.Sin(t/11))
	rr := float32(8.5 - 2*math.Tanh(t/30) + 0.4*math.Sin(t/5))

	x := belief.SensorFeatures{
		HRBpm:   &hr,
		RMSSD:   &rmssd,
		RRBpm:   &rr,
		Quality: 0.9,
		Motion:  0.05,
	}
	phys := belief.PhysioState{
		HRBpm:      &hr,
		RRBpm:      &rr,
		RMSSD:      &rmssd,
		Confidence: 0.85,
	}
	return x, phys
}

// #endregion synthetic
