package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/droprelay/pkg/logger"
)

// Money/s distribution bounds.
const (
	randomFloatDivisor = 1000000
	commonMSMin        = 1e3
	commonMSRange      = 9e4
	rareMSMin          = 1e5
	rareMSRange        = 9e6
	rareOneIn          = 10
	maxPlayers         = 8
)

var dropNames = []string{ //nolint:gochecknoglobals // fixed sample set
	"Tralalero Tralala",
	"Graipuss Medussi",
	"La Vacca Saturno",
	"Los Tralaleritos",
	"Chimpanzini Bananini",
	"Cappuccino Assassino",
	"Brr Brr Patapim",
	"Tung Tung Sahur",
}

func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

func randomFloat() float64 {
	return float64(randomInt(randomFloatDivisor)) / randomFloatDivisor
}

// generateDrops builds n drops with unique uuid job ids.
func generateDrops(ctx context.Context, n int, stats *Stats) ([]Drop, error) {
	if n <= 0 {
		return nil, ErrNoDrops
	}
	drops := make([]Drop, n)
	for i := range drops {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		drops[i] = generateDrop()
	}
	stats.DropsGenerated = len(drops)
	logger.Get().Info(ctx, "generated drops", logger.Int("count", len(drops)))
	return drops, nil
}

func generateDrop() Drop {
	ms := commonMSMin + randomFloat()*commonMSRange
	if randomInt(rareOneIn) == 0 {
		ms = rareMSMin + randomFloat()*rareMSRange
	}
	return Drop{
		Job:     uuid.NewString(),
		Name:    dropNames[randomInt(int64(len(dropNames)))],
		MS:      float64(int64(ms)),
		Players: fmt.Sprintf("%d/%d", 1+randomInt(maxPlayers), maxPlayers),
	}
}
