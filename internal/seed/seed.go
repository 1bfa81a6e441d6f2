// Package seed fills an empty store with demo users and tool listings.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"toolshare-backend/internal/config"
	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/security"
)

type neighborhood struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Neighborhoods are the demo areas tools are spread over.
var Neighborhoods = []neighborhood{
	{"Downtown", 40.7128, -74.0060},
	{"Midtown", 40.7549, -73.9840},
	{"Uptown", 40.8075, -73.9626},
	{"Brooklyn Heights", 40.6950, -73.9950},
	{"Williamsburg", 40.7081, -73.9571},
	{"Astoria", 40.7636, -73.9232},
	{"Park Slope", 40.6710, -73.9814},
	{"Long Island City", 40.7447, -73.9485},
}

// Users are the demo accounts. All share the configured demo password.
var Users = []domain.User{
	{Username: "john_diy", Name: "John Smith", Email: "john@example.com"},
	{Username: "sarah_maker", Name: "Sarah Johnson", Email: "sarah@example.com"},
	{Username: "mike_build", Name: "Mike Chen", Email: "mike@example.com"},
	{Username: "lisa_craft", Name: "Lisa Rodriguez", Email: "lisa@example.com"},
	{Username: "david_tools", Name: "David Wilson", Email: "david@example.com"},
	{Username: "emma_fix", Name: "Emma Brown", Email: "emma@example.com"},
	{Username: "demo_user", Name: "Demo User", Email: "demo@toolshare.com"},
}

var (
	toolTypes = []string{
		"Power Drill", "Circular Saw", "Lawn Mower", "Pressure Washer",
		"Hedge Trimmer", "Ladder", "Chain Saw", "Sander", "Nail Gun",
		"Air Compressor", "Generator", "Router", "Planer", "Jigsaw",
		"Rotary Hammer", "Tile Cutter", "Paint Sprayer", "Leaf Blower",
	}
	brands = []string{
		"DeWalt", "Makita", "Milwaukee", "Bosch", "Ryobi", "Black & Decker",
		"Craftsman", "Ridgid", "Festool", "Hitachi", "Porter-Cable", "Kobalt",
	}
	conditions = []string{
		domain.ToolConditionLikeNew, domain.ToolConditionGood,
		domain.ToolConditionFair, domain.ToolConditionWellUsed,
	}
	descriptions = []string{
		"Great %[2]s for home projects. Well maintained and ready to use.",
		"Professional grade %[2]s. Perfect for serious DIYers.",
		"Reliable %[2]s that gets the job done. Easy to use.",
		"High-quality %[1]s %[2]s. Powerful and efficient.",
		"Versatile %[2]s suitable for various applications.",
	}
)

// Run seeds the store when it has no users yet. seeded reports whether
// anything was written. A zero RandomSeed picks a time based seed.
func Run(ctx context.Context, store repository.Store, cfg config.SeedConfig) (seeded bool, err error) {
	var existing []domain.User
	err = store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		existing, err = repos.Users().FindWhere(ctx, domain.UserFilter{})
		return err
	})
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		logger.Debug("Store already has users, skipping seed", "users", len(existing))
		return false, nil
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	hash, err := security.HashPassword(cfg.DemoPassword)
	if err != nil {
		return false, err
	}
	tools := Tools(rng, cfg.ToolCount)

	err = store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		for _, u := range Users {
			u.PasswordHash = hash
			if err := repos.Users().Create(ctx, &u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
		}
		for i := range tools {
			if err := repos.Tools().Create(ctx, &tools[i]); err != nil {
				return fmt.Errorf("seed tool %q: %w", tools[i].Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	logger.Info("Seeded demo data", "users", len(Users), "tools", len(tools), "random_seed", seed)
	return true, nil
}

// Tools generates n listings owned by the demo users. About 80% are available.
func Tools(rng *rand.Rand, n int) []domain.Tool {
	tools := make([]domain.Tool, 0, n)
	for i := 0; i < n; i++ {
		hood := Neighborhoods[rng.IntN(len(Neighborhoods))]
		owner := Users[rng.IntN(len(Users))]
		toolType := toolTypes[rng.IntN(len(toolTypes))]
		brand := brands[rng.IntN(len(brands))]

		hourly := money(5 + rng.Float64()*20)
		deposit := decimal.Zero
		if rng.Float64() > 0.3 {
			deposit = money(20 + rng.Float64()*80)
		}

		tools = append(tools, domain.Tool{
			OwnerUsername: owner.Username,
			Title:         brand + " " + toolType,
			Description:   fmt.Sprintf(descriptions[rng.IntN(len(descriptions))], brand, toolType),
			ToolType:      toolType,
			Brand:         brand,
			Condition:     conditions[rng.IntN(len(conditions))],
			HourlyRate:    hourly,
			DailyRate:     hourly.Mul(decimal.NewFromInt(5)).Round(2),
			Deposit:       deposit,
			Neighborhood:  hood.Name,
			Latitude:      hood.Latitude + jitter(rng),
			Longitude:     hood.Longitude + jitter(rng),
			Rating:        float64(int((3+rng.Float64()*2)*10+0.5)) / 10,
			ReviewCount:   rng.IntN(26),
			ImagePath:     fmt.Sprintf(domain.DefaultToolImagePattern, i+1),
			Available:     rng.Float64() > 0.2,
		})
	}
	return tools
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// jitter spreads tools up to 0.01 degrees around the neighborhood center.
func jitter(rng *rand.Rand) float64 {
	return rng.Float64()*0.02 - 0.01
}
