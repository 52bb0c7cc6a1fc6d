package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kevin07696/cybermut-service/internal/adapters/memory"
	"github.com/kevin07696/cybermut-service/internal/domain"
)

// loadOrders seeds the order store from a JSON array of orders
func loadOrders(ctx context.Context, store *memory.OrderStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read orders file: %w", err)
	}

	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return 0, fmt.Errorf("failed to parse orders file: %w", err)
	}

	for i := range orders {
		if err := store.SaveOrder(ctx, &orders[i]); err != nil {
			return i, fmt.Errorf("order %q: %w", orders[i].Reference, err)
		}
	}
	return len(orders), nil
}
