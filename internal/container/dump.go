package container

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/fetch"

	log "github.com/sirupsen/logrus"
)

type dumpCategory struct {
	Name          string            `json:"name"`
	Counts        domain.Counts     `json:"counts"`
	Subcategories []dumpSubcategory `json:"subcategories"`
}

type dumpSubcategory struct {
	Name        string           `json:"name"`
	Counts      domain.Counts    `json:"counts"`
	CommonNames []dumpCommonName `json:"common_names"`
}

type dumpCommonName struct {
	Name   string              `json:"name"`
	Counts domain.Counts       `json:"counts"`
	Items  []map[string]string `json:"items"`
}

// Dump exports the inventory tree as indented JSON on stdout, ignoring any
// saved session state. An empty category exports everything.
func (c *Container) Dump(ctx context.Context, category string) error {
	return c.dumpTo(ctx, os.Stdout, category)
}

func (c *Container) dumpTo(ctx context.Context, w io.Writer, category string) error {
	log.Infof("🔄 Exporting inventory tree (category=%q)", category)

	categories, err := c.Client.FetchAllChildren(ctx, fetch.ChildQuery{Level: domain.LevelCategory})
	if err != nil {
		return fmt.Errorf("failed to fetch categories: %w", err)
	}

	out := make([]dumpCategory, 0, len(categories.Records))
	for _, rec := range categories.Records {
		if category != "" && rec.ID != category {
			continue
		}
		out = append(out, dumpCategory{Name: rec.ID, Counts: rec.Counts})
	}
	if category != "" && len(out) == 0 {
		return fmt.Errorf("category %q not found", category)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Config.Service.MaxWorkers)
	for i := range out {
		g.Go(func() error {
			return c.dumpCategory(gctx, &out[i])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	log.Infof("✅ Export finished: %d categories", len(out))
	return nil
}

func (c *Container) dumpCategory(ctx context.Context, cat *dumpCategory) error {
	subs, err := c.Client.FetchAllChildren(ctx, fetch.ChildQuery{
		Level:  domain.LevelSubcategory,
		Coords: domain.Coordinates{Category: cat.Name},
	})
	if err != nil {
		return fmt.Errorf("failed to fetch subcategories of %s: %w", cat.Name, err)
	}

	cat.Subcategories = make([]dumpSubcategory, 0, len(subs.Records))
	for _, rec := range subs.Records {
		sub := dumpSubcategory{Name: rec.ID, Counts: rec.Counts}
		if err := c.dumpSubcategory(ctx, cat.Name, &sub); err != nil {
			return err
		}
		cat.Subcategories = append(cat.Subcategories, sub)
	}
	return nil
}

func (c *Container) dumpSubcategory(ctx context.Context, category string, sub *dumpSubcategory) error {
	names, err := c.Client.FetchAllChildren(ctx, fetch.ChildQuery{
		Level:  domain.LevelCommonName,
		Coords: domain.Coordinates{Category: category, Subcategory: sub.Name},
	})
	if err != nil {
		return fmt.Errorf("failed to fetch common names of %s/%s: %w", category, sub.Name, err)
	}

	sub.CommonNames = make([]dumpCommonName, 0, len(names.Records))
	for _, rec := range names.Records {
		cn := dumpCommonName{Name: rec.ID, Counts: rec.Counts}

		items, err := c.Client.FetchAllChildren(ctx, fetch.ChildQuery{
			Level:  domain.LevelItem,
			Coords: domain.Coordinates{Category: category, Subcategory: sub.Name, CommonName: cn.Name},
		})
		if err != nil {
			return fmt.Errorf("failed to fetch items of %s/%s/%s: %w", category, sub.Name, cn.Name, err)
		}

		cn.Items = make([]map[string]string, 0, len(items.Records))
		for _, item := range items.Records {
			fields := make(map[string]string, len(item.Fields))
			for k, v := range item.Fields {
				fields[k] = v
			}
			cn.Items = append(cn.Items, fields)
		}
		sub.CommonNames = append(sub.CommonNames, cn)
	}
	return nil
}
