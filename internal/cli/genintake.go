package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"growbase/internal/model"
)

// NewGenIntakeCommand writes synthetic telemetry records as JSONL, for feeding
// the Kafka intake path in development.
func NewGenIntakeCommand() *cobra.Command {
	var count int
	var outputFile string

	cmd := &cobra.Command{
		Use:   "genintake",
		Short: "Generate sample telemetry records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateIntake(count, outputFile)
		},
	}
	cmd.Flags().IntVar(&count, "count", 100, "number of records to generate")
	cmd.Flags().StringVar(&outputFile, "output", "telemetry.jsonl", "output file")
	return cmd
}

func generateIntake(count int, outputFile string) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	plants := []string{"Tomato", "Basil", "Pepper", "Lettuce", "Strawberry"}
	rooms := []string{"veg-1", "veg-2", "flower-1", "clone"}

	enc := json.NewEncoder(file)
	for i := 0; i < count; i++ {
		rec := model.Intake{
			Plant:     fmt.Sprintf("%s-%d", plants[rand.Intn(len(plants))], i+1),
			Room:      rooms[rand.Intn(len(rooms))],
			TargetPPM: fmt.Sprintf("%d", 600+rand.Intn(800)),
			TargetPH:  fmt.Sprintf("%.1f", 5.5+rand.Float64()),
			Notes:     "generated sample",
		}
		if err := enc.Encode(&rec); err != nil {
			return fmt.Errorf("encode record %d: %w", i+1, err)
		}
	}

	log.Printf("generated %d records to %s", count, outputFile)
	return nil
}
