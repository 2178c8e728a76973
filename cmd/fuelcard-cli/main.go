package main

import (
	"context"

	"fuelcard-backend/cmd/fuelcard-cli/commands"
	"fuelcard-backend/lib/telemetry"
)

func main() {
	ctx := context.Background()
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(ctx, "fuelcard-cli")
	commands.ExecuteContext(ctx)
}
