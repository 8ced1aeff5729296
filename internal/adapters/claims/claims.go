// Package claims enforces one promo code per player per game.
package claims

import (
	"context"
	"strings"
)

// Store records which player already claimed which game.
type Store interface {
	// Claim atomically records (player, game).
	// Returns true if this call made the claim, false if it already existed.
	Claim(ctx context.Context, player, game string) (bool, error)

	// Release removes a claim, allowing the player to win the game again.
	// Used when the award could not be delivered.
	Release(ctx context.Context, player, game string) error

	// Size returns the number of claims currently held.
	Size(ctx context.Context) (int64, error)
}

// Key builds the claim identifier for player and game.
func Key(player, game string) string {
	return strings.TrimSpace(player) + ":" + game
}
