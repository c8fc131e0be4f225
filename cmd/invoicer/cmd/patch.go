package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/engine"
	"github.com/rezonia/invoicer/internal/model"
)

// editFlags are the draft edits shared by new and calc
type editFlags struct {
	set        []string
	items      []string
	addItems   int
	removeItem []int
}

func (f *editFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "Set an invoice field: key=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.items, "item", nil, "Set an item field: index:key=value (repeatable)")
	cmd.Flags().IntVar(&f.addItems, "add-item", 0, "Append this many blank items")
	cmd.Flags().IntSliceVar(&f.removeItem, "remove-item", nil, "Remove the item at index (repeatable, applied in order)")
}

// apply recalculates every item, then runs removals, additions, item edits
// and field edits in that order.
func (f *editFlags) apply(inv model.Invoice) (model.Invoice, error) {
	inv = engine.Recompute(inv, engine.Patch{engine.KeyItems: inv.Items})

	for _, index := range f.removeItem {
		if index < 0 || index >= len(inv.Items) {
			return inv, fmt.Errorf("no item at index %d", index)
		}
		inv = engine.RemoveItem(inv, index)
	}

	for i := 0; i < f.addItems; i++ {
		inv = engine.AddItem(inv, uuid.NewString())
	}

	itemPatches, err := parseItemPatches(f.items)
	if err != nil {
		return inv, err
	}
	for _, index := range lo.Keys(itemPatches) {
		if index >= len(inv.Items) {
			return inv, fmt.Errorf("no item at index %d", index)
		}
	}
	for index, patch := range itemPatches {
		inv = engine.UpdateItem(inv, index, patch)
	}

	patch, err := parsePatch(f.set)
	if err != nil {
		return inv, err
	}
	return engine.Recompute(inv, patch), nil
}

// parsePatch turns key=value pairs into a patch
func parsePatch(pairs []string) (engine.Patch, error) {
	patch := engine.Patch{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		patch[strings.TrimSpace(key)] = value
	}
	return patch, nil
}

// parseItemPatches turns index:key=value entries into per item patches
func parseItemPatches(entries []string) (map[int]engine.Patch, error) {
	out := map[int]engine.Patch{}
	for _, entry := range entries {
		rawIndex, pair, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --item %q, expected index:key=value", entry)
		}
		index, err := strconv.Atoi(strings.TrimSpace(rawIndex))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid item index in %q", entry)
		}
		patch, err := parsePatch([]string{pair})
		if err != nil {
			return nil, fmt.Errorf("invalid --item %q, expected index:key=value", entry)
		}
		if out[index] == nil {
			out[index] = engine.Patch{}
		}
		for k, v := range patch {
			out[index][k] = v
		}
	}
	return out, nil
}
