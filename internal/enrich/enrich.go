// Package enrich joins raw backend records with profile metadata and
// converted media. Per-record lookups within one batch run concurrently and
// the batch completes only when all of them have resolved; a single failing
// lookup fails the whole batch.
package enrich

import (
	"context"

	"socio/internal/assets"
	"socio/internal/backend"
	"socio/internal/identity"
	"socio/internal/models"
	"socio/internal/observability"

	"golang.org/x/sync/errgroup"
)

// Pipeline resolves identifiers against the backend and converts binary
// fields through the asset cache before publishing a batch.
type Pipeline struct {
	actor backend.Actor
	cache *assets.Cache
}

// NewPipeline creates an enrichment pipeline.
func NewPipeline(actor backend.Actor, cache *assets.Cache) *Pipeline {
	return &Pipeline{actor: actor, cache: cache}
}

// ChatThreads resolves each of the user's thread ids into a render-ready
// thread: the counterpart's profile and the thread's messages are fetched in
// the same pass, the profile picture converted, and the results grouped by
// counterpart username.
func (p *Pipeline) ChatThreads(ctx context.Context, self string, chatIDs []string) (map[string]*models.ChatThread, error) {
	defer observability.TrackEnrichment("chat_threads")()

	out := make(map[string]*models.ChatThread, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}

	threads := make([]*models.ChatThread, len(chatIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range chatIDs {
		i, key := i, identity.Key(raw)
		g.Go(func() error {
			counterpart, ok := identity.Counterpart(key, self)
			if !ok {
				return models.NewValidationError("thread id " + string(key) + " does not include the current user")
			}
			profile, err := p.actor.GetProfileDetails(gctx, counterpart)
			if err != nil {
				return err
			}
			groups, err := p.actor.GetMessages(gctx, key)
			if err != nil {
				return err
			}
			var pic *models.AssetHandle
			if len(profile.ProfilePicture) != 0 {
				pic, err = p.cache.Convert(profile.ProfilePicture)
				if err != nil {
					return err
				}
			}
			threads[i] = &models.ChatThread{
				Name:       counterpart,
				ProfilePic: pic,
				Status:     models.StatusOnline,
				Messages:   groups,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range threads {
		out[t.Name] = t
	}
	return out, nil
}

// Profile resolves one username into its enriched summary.
func (p *Pipeline) Profile(ctx context.Context, username string) (*models.ProfileSummary, error) {
	record, err := p.actor.GetProfileDetails(ctx, username)
	if err != nil {
		return nil, err
	}
	return p.summarize(record)
}

// CurrentUser resolves the authenticated user's own enriched summary.
func (p *Pipeline) CurrentUser(ctx context.Context) (*models.ProfileSummary, error) {
	record, err := p.actor.GetUserDetails(ctx)
	if err != nil {
		return nil, err
	}
	return p.summarize(record)
}

func (p *Pipeline) summarize(record *models.ProfileRecord) (*models.ProfileSummary, error) {
	var pic *models.AssetHandle
	if len(record.ProfilePicture) != 0 {
		converted, err := p.cache.Convert(record.ProfilePicture)
		if err != nil {
			return nil, err
		}
		pic = converted
	}
	summary := record.Summary(pic)
	return &summary, nil
}

// Notifications joins each raw notification with the sender's converted
// profile picture. Output order and cardinality equal the input.
func (p *Pipeline) Notifications(ctx context.Context, records []models.NotificationRecord) ([]models.NotificationItem, error) {
	defer observability.TrackEnrichment("notifications")()

	items := make([]models.NotificationItem, len(records))
	if len(records) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			profile, err := p.actor.GetProfileDetails(gctx, rec.From)
			if err != nil {
				return err
			}
			var pic *models.AssetHandle
			if len(profile.ProfilePicture) != 0 {
				pic, err = p.cache.Convert(profile.ProfilePicture)
				if err != nil {
					return err
				}
			}
			items[i] = models.NotificationItem{
				From:             rec.From,
				Action:           rec.Action,
				NotificationType: rec.NotificationType,
				Addresses:        rec.Addresses,
				Date:             rec.Date,
				ProfilePic:       pic,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// Search runs a username substring query and converts each hit's picture.
func (p *Pipeline) Search(ctx context.Context, query string) ([]models.AccountView, error) {
	defer observability.TrackEnrichment("search")()

	accounts, err := p.actor.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}

	type hit struct {
		view    models.AccountView
		payload []byte
	}
	hits := make([]hit, len(accounts))
	for i, acc := range accounts {
		hits[i] = hit{
			view:    models.AccountView{Username: acc.Username, DisplayName: acc.DisplayName},
			payload: acc.ProfilePicture,
		}
	}

	converted, err := assets.ConvertAll(p.cache, hits,
		func(h hit) []byte { return h.payload },
		func(h *hit, handle *models.AssetHandle) { h.view.ProfilePicture = handle },
	)
	if err != nil {
		return nil, err
	}

	views := make([]models.AccountView, len(converted))
	for i, h := range converted {
		views[i] = h.view
	}
	return views, nil
}

// Posts resolves post addresses into enriched views with converted media.
func (p *Pipeline) Posts(ctx context.Context, addresses []string) ([]models.PostView, error) {
	defer observability.TrackEnrichment("posts")()

	views := make([]models.PostView, len(addresses))
	if len(addresses) == 0 {
		return views, nil
	}

	records := make([]*models.PostRecord, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			record, err := p.actor.GetPost(gctx, addr)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, record := range records {
		var img *models.AssetHandle
		if len(record.Img) != 0 {
			converted, err := p.cache.Convert(record.Img)
			if err != nil {
				return nil, err
			}
			img = converted
		}
		views[i] = models.PostView{
			Address: record.Address,
			Owner:   record.Owner,
			Img:     img,
			Caption: record.Caption,
			Date:    record.Date,
			Likes:   record.Likes,
		}
	}
	return views, nil
}
