package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/metrics"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/reconcile"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

type CollectionInput struct {
	// 0 - новая коллекция
	ID         int64
	Title      string
	BodyHTML   string
	ImageURL   string
	Published  bool
	ProductIDs []string
}

type CollectionResult struct {
	CollectionID int64           `json:"collection_id"`
	Created      bool            `json:"created"`
	Products     ReconcileResult `json:"products"`
}

type MembershipFailure struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type ReconcileResult struct {
	Added   []int64             `json:"added"`
	Removed []int64             `json:"removed"`
	Skipped []int64             `json:"skipped"`
	Failed  []MembershipFailure `json:"failed"`
	Status  model.BatchStatus   `json:"status"`
}

// UpsertCollection сохраняет коллекцию на платформе и приводит её состав к ProductIDs.
func (service *service) UpsertCollection(ctx context.Context, storeCode string, in CollectionInput) (CollectionResult, error) {
	if strings.TrimSpace(in.Title) == "" {
		return CollectionResult{}, ErrInsufficientData
	}

	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return CollectionResult{}, err
	}
	st := client.Store()

	payload := shopifyclient.CustomCollectionPayload{
		Title:     in.Title,
		BodyHTML:  in.BodyHTML,
		Published: in.Published,
	}
	if in.ImageURL != "" {
		payload.Image = &shopifyclient.CollectionImage{Src: in.ImageURL}
	}
	if in.ID != 0 {
		_, found, err := client.GetCustomCollection(ctx, in.ID)
		if err != nil {
			return CollectionResult{}, err
		}
		// удалённая на платформе коллекция создаётся заново
		if found {
			payload.ID = in.ID
		}
	}

	saved, err := client.SaveCustomCollection(ctx, payload)
	if err != nil {
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "collection_save", ResourceID: strconv.FormatInt(in.ID, 10),
			Status: auditlog.StatusFailed, Message: err.Error()})
		return CollectionResult{}, err
	}
	result := CollectionResult{CollectionID: saved.ID, Created: payload.ID == 0}

	err = service.store.CollectionUpsert(ctx, model.Collection{
		StoreID:             st.ID,
		ShopifyCollectionID: saved.ID,
		Title:               saved.Title,
		BodyHTML:            saved.BodyHTML,
		ImageURL:            in.ImageURL,
		Published:           saved.Published,
	})
	if err != nil {
		service.zaplog.Error("collection upsert", zap.Int64("collection_id", saved.ID), zap.Error(err))
	}
	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "collection_save", ResourceID: strconv.FormatInt(saved.ID, 10),
		Status: auditlog.StatusSuccess})

	result.Products, err = service.reconcileMembership(ctx, client, saved.ID, in.ProductIDs)
	return result, err
}

func (service *service) ReconcileCollection(ctx context.Context, storeCode string, collectionID int64, desired []string) (ReconcileResult, error) {
	if collectionID <= 0 {
		return ReconcileResult{}, ErrInsufficientData
	}
	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return ReconcileResult{}, err
	}
	return service.reconcileMembership(ctx, client, collectionID, desired)
}

// reconcileMembership приводит состав коллекции к desired.
// Повторный вызов с тем же набором ничего не меняет на платформе.
func (service *service) reconcileMembership(ctx context.Context, client *shopifyclient.Client, collectionID int64, desired []string) (ReconcileResult, error) {
	st := client.Store()
	res := ReconcileResult{Added: []int64{}, Removed: []int64{}, Skipped: []int64{}, Failed: []MembershipFailure{}}

	ids, invalid := reconcile.NormalizeIDs(desired)
	for _, inv := range invalid {
		res.Failed = append(res.Failed, MembershipFailure{ProductID: inv.Value, Reason: inv.Reason})
	}

	collects, err := client.ListCollects(ctx, collectionID)
	if err != nil {
		return res, err
	}
	// товар -> связь
	edges := make(map[int64]int64, len(collects))
	current := make([]int64, 0, len(collects))
	for _, c := range collects {
		edges[c.ProductID] = c.ID
		current = append(current, c.ProductID)
	}

	plan := reconcile.Diff(ids, current)

	for _, productID := range plan.ToAdd {
		_, err := client.CreateCollect(ctx, collectionID, productID)
		switch {
		case err == nil:
			res.Added = append(res.Added, productID)
		case isAlreadyMember(err):
			res.Skipped = append(res.Skipped, productID)
		default:
			res.Failed = append(res.Failed, MembershipFailure{ProductID: strconv.FormatInt(productID, 10), Reason: err.Error()})
		}
	}

	for _, productID := range plan.ToRemove {
		err := client.DeleteCollect(ctx, edges[productID])
		if err != nil && !shopifyclient.IsNotFound(err) {
			res.Failed = append(res.Failed, MembershipFailure{ProductID: strconv.FormatInt(productID, 10), Reason: err.Error()})
			continue
		}
		res.Removed = append(res.Removed, productID)
	}

	res.Status = model.BatchStatusOf(len(res.Added)+len(res.Removed)+len(res.Skipped), len(res.Failed))

	metrics.SyncItemsTotal.WithLabelValues("collect", "added").Add(float64(len(res.Added)))
	metrics.SyncItemsTotal.WithLabelValues("collect", "removed").Add(float64(len(res.Removed)))
	status := auditlog.StatusSuccess
	if res.Status != model.BatchStatusSuccess {
		status = auditlog.StatusFailed
	}
	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "collection_reconcile",
		ResourceID: strconv.FormatInt(collectionID, 10), Status: status, Payload: res})
	return res, nil
}

// 422 "already exists" - товар уже в коллекции
func isAlreadyMember(err error) bool {
	var nr *shopifyclient.NonRetryableError
	return errors.As(err, &nr) &&
		nr.Status == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(nr.Body), "already exists")
}

// DeleteCollection удаляет коллекцию на платформе и локально. Отсутствие на платформе - не ошибка.
func (service *service) DeleteCollection(ctx context.Context, storeCode string, collectionID int64) error {
	if collectionID <= 0 {
		return ErrInsufficientData
	}
	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return err
	}
	st := client.Store()

	if err := client.DeleteCustomCollection(ctx, collectionID); err != nil && !shopifyclient.IsNotFound(err) {
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "collection_delete", ResourceID: strconv.FormatInt(collectionID, 10),
			Status: auditlog.StatusFailed, Message: err.Error()})
		return err
	}
	if err := service.store.CollectionDelete(ctx, st.ID, collectionID); err != nil {
		return err
	}
	service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "collection_delete", ResourceID: strconv.FormatInt(collectionID, 10),
		Status: auditlog.StatusSuccess})
	return nil
}
