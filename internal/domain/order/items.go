package order

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeItems serializes line items as comma-separated productID:qty pairs,
// the record form shared by the snapshot stores and import feeds.
func EncodeItems(items []Item) string {
	pairs := make([]string, len(items))
	for i, it := range items {
		pairs[i] = fmt.Sprintf("%s:%d", it.ProductID, it.Quantity)
	}
	return strings.Join(pairs, ",")
}

// DecodeItems parses comma-separated productID:qty pairs, dropping malformed
// pairs and non-positive quantities.
func DecodeItems(s string) []Item {
	var items []Item
	for _, pair := range strings.Split(s, ",") {
		pid, qtyStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		pid = strings.TrimSpace(pid)
		qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
		if err != nil || qty <= 0 || pid == "" {
			continue
		}
		items = append(items, Item{ProductID: pid, Quantity: qty})
	}
	return items
}
