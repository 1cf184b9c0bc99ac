package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ncecere/attendance/backend/internal/timeutil"
)

func main() {
	period := flag.String("period", "weekly", "weekly or monthly")
	start := flag.String("start", "", "custom start (YYYY-MM-DD or RFC3339)")
	end := flag.String("end", "", "custom end (YYYY-MM-DD or RFC3339)")
	nowRaw := flag.String("now", "", "reference instant (RFC3339); defaults to the current time")
	flag.Parse()

	now := time.Now().UTC()
	if *nowRaw != "" {
		parsed, err := time.Parse(time.RFC3339, *nowRaw)
		if err != nil {
			log.Fatalf("parse -now: %v", err)
		}
		now = parsed
	}

	r, kind, err := timeutil.ParseRange(*period, *start, *end, now)
	if err != nil {
		log.Fatalf("resolve range: %v", err)
	}
	label := string(kind)
	if *start != "" || *end != "" {
		label = "custom"
	}
	fmt.Printf("period: %s\nstart:  %s\nend:    %s\nspan:   %s\n", label, r.StartString(), r.EndString(), r.Duration().Round(time.Second))
}
