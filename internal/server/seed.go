package server

import (
	"context"
	"log/slog"

	"github.com/playperu/drawcast/internal/drawday"
)

var demoGames = []drawday.GameInput{
	{Name: "Morning Star", ResultTime: "10:00 AM"},
	{Name: "Lucky Noon", ResultTime: "12:30 PM"},
	{Name: "Evening Draw", ResultTime: "05:30 PM"},
	{Name: "Night King", ResultTime: "11:00 PM"},
}

// SeedDemo creates the demo games if the catalogue is empty.
// Idempotent: does nothing once any game exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, games *drawday.Games) error {
	existing, err := games.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, in := range demoGames {
		if _, err := games.Create(ctx, in); err != nil {
			return err
		}
	}

	logger.Info("demo games seeded", "count", len(demoGames))
	return nil
}
