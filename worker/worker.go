// Package worker repairs the restaurant side of the item link. Item and
// restaurant records are written without a transaction, so a failure
// between the two writes leaves a restaurant whose item list or category
// set disagrees with its items. The reconcile pass finds and fixes that
// drift.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/models"
	"foodhub/resolver"
)

const WorkerPoolSize = 8

type Options struct {
	// DryRun computes the repairs without writing them.
	DryRun bool
	// PruneCategories removes categories no current item uses. Without it,
	// categories are only ever added.
	PruneCategories bool
	Concurrency     int
}

// Repair describes what reconcile changed, or would change, on one
// restaurant.
type Repair struct {
	Restaurant       primitive.ObjectID
	Name             string
	UpgradedRefs     int
	AddedItems       int
	DroppedItems     int
	AddedCategories  []string
	PrunedCategories []string
	Err              error
}

func (r Repair) Changed() bool {
	return r.UpgradedRefs+r.AddedItems+r.DroppedItems+len(r.AddedCategories)+len(r.PrunedCategories) > 0
}

// Report lists the restaurants that needed repair or failed, in store
// order.
type Report struct {
	Restaurants int
	Repairs     []Repair
	DryRun      bool
}

// Failed counts restaurants whose repair errored.
func (r Report) Failed() int {
	n := 0
	for _, rep := range r.Repairs {
		if rep.Err != nil {
			n++
		}
	}
	return n
}

type Reconciler struct {
	store *database.Store
	log   *zap.Logger
	opts  Options
}

func NewReconciler(store *database.Store, log *zap.Logger, opts Options) *Reconciler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = WorkerPoolSize
	}
	return &Reconciler{store: store, log: log.Named("reconcile"), opts: opts}
}

// Run reconciles every restaurant. A failure on one restaurant is recorded
// in its Repair and does not stop the others.
func (rc *Reconciler) Run(ctx context.Context) (Report, error) {
	restaurants, err := rc.store.Restaurants.Find(ctx, models.Query{})
	if err != nil {
		return Report{}, fmt.Errorf("load restaurants: %w", err)
	}
	rc.log.Info("reconcile started",
		zap.Int("restaurants", len(restaurants)),
		zap.Int("concurrency", rc.opts.Concurrency),
		zap.Bool("dryRun", rc.opts.DryRun))

	results := make([]Repair, len(restaurants))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, rc.opts.Concurrency)

	for i, r := range restaurants {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, r *models.Restaurant) {
			defer wg.Done()
			defer func() { <-semaphore }()

			rep := rc.reconcile(ctx, r)
			if rep.Err != nil {
				rc.log.Warn("reconcile failed", zap.String("restaurant", r.ID.Hex()), zap.Error(rep.Err))
			} else if rep.Changed() {
				rc.log.Info("restaurant repaired",
					zap.String("restaurant", r.ID.Hex()),
					zap.Int("refs", rep.UpgradedRefs),
					zap.Int("added", rep.AddedItems),
					zap.Int("dropped", rep.DroppedItems))
			}
			results[i] = rep
		}(i, r)
	}
	wg.Wait()

	report := Report{Restaurants: len(restaurants), DryRun: rc.opts.DryRun}
	for _, rep := range results {
		if rep.Err != nil || rep.Changed() {
			report.Repairs = append(report.Repairs, rep)
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (rc *Reconciler) reconcile(ctx context.Context, r *models.Restaurant) Repair {
	rep := Repair{Restaurant: r.ID, Name: r.Name}

	items, err := rc.store.Items.Find(ctx, models.AnyOf(resolver.RefClauses(r)...))
	if err != nil {
		rep.Err = fmt.Errorf("load items: %w", err)
		return rep
	}

	for _, item := range items {
		if item.Restaurant.Kind == models.RefNative {
			continue
		}
		rep.UpgradedRefs++
		if rc.opts.DryRun {
			continue
		}
		item.Restaurant = models.NativeRef(r.ID)
		if err := rc.store.Items.Replace(ctx, item); err != nil && !errors.Is(err, database.ErrNotFound) {
			rep.Err = fmt.Errorf("upgrade item %s: %w", item.ID.Hex(), err)
			return rep
		}
	}

	found := make(map[primitive.ObjectID]bool, len(items))
	used := map[string]bool{}
	for _, item := range items {
		found[item.ID] = true
		if item.Category != "" {
			used[item.Category] = true
		}
		if !slices.Contains(r.Items, item.ID) {
			r.Items = append(r.Items, item.ID)
			rep.AddedItems++
		}
		if item.Category != "" && !slices.Contains(r.Categories, item.Category) {
			r.Categories = append(r.Categories, item.Category)
			rep.AddedCategories = append(rep.AddedCategories, item.Category)
		}
	}

	kept := make([]primitive.ObjectID, 0, len(r.Items))
	for _, id := range r.Items {
		if found[id] {
			kept = append(kept, id)
			continue
		}
		// listed but not referencing this restaurant: drop it only when
		// the item is gone altogether
		n, err := rc.store.Items.Count(ctx, models.AnyOf(models.EqID(models.FieldStorageID, id.Hex())))
		if err != nil {
			rep.Err = fmt.Errorf("check item %s: %w", id.Hex(), err)
			return rep
		}
		if n == 0 {
			rep.DroppedItems++
			continue
		}
		kept = append(kept, id)
	}
	r.Items = kept

	if rc.opts.PruneCategories {
		r.Categories = slices.DeleteFunc(r.Categories, func(c string) bool {
			if used[c] {
				return false
			}
			rep.PrunedCategories = append(rep.PrunedCategories, c)
			return true
		})
	}

	restaurantChanged := rep.AddedItems+rep.DroppedItems+len(rep.AddedCategories)+len(rep.PrunedCategories) > 0
	if rc.opts.DryRun || !restaurantChanged {
		return rep
	}
	if err := rc.store.Restaurants.Replace(ctx, r); err != nil {
		rep.Err = fmt.Errorf("save restaurant: %w", err)
	}
	return rep
}
