package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auditlog"
	"github.com/iurnickita/shopsync/internal/model"
	"github.com/iurnickita/shopsync/internal/reconcile"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

// ImageReplace - новый набор изображений товара.
type ImageReplace struct {
	ProductID int64
	Images    []shopifyclient.ImagePayload
}

type ImageFailure struct {
	Src     string `json:"src,omitempty"`
	ImageID int64  `json:"image_id,omitempty"`
	Reason  string `json:"reason"`
}

type ProductImageResult struct {
	ProductID int64             `json:"product_id"`
	Added     []int64           `json:"added"`
	Removed   []int64           `json:"removed"`
	Failed    []ImageFailure    `json:"failed"`
	Status    model.BatchStatus `json:"status"`
}

type ImageBatchResult struct {
	Products []ProductImageResult `json:"products"`
	Status   model.BatchStatus    `json:"status"`
}

// ReplaceProductImages заменяет изображения товаров пакета.
// Старые изображения удаляются только после успешного добавления всех новых.
func (service *service) ReplaceProductImages(ctx context.Context, storeCode string, batch []ImageReplace) (ImageBatchResult, error) {
	if len(batch) == 0 {
		return ImageBatchResult{}, ErrInsufficientData
	}

	client, err := service.bind(ctx, storeCode)
	if err != nil {
		return ImageBatchResult{}, err
	}

	result := ImageBatchResult{Products: make([]ProductImageResult, 0, len(batch))}
	succeeded, failed := 0, 0
	for _, req := range batch {
		r := service.replaceImages(ctx, client, req)
		result.Products = append(result.Products, r)
		if r.Status == model.BatchStatusSuccess {
			succeeded++
		} else {
			failed++
		}
	}
	result.Status = model.BatchStatusOf(succeeded, failed)
	return result, nil
}

func (service *service) replaceImages(ctx context.Context, client *shopifyclient.Client, req ImageReplace) ProductImageResult {
	st := client.Store()
	res := ProductImageResult{ProductID: req.ProductID, Added: []int64{}, Removed: []int64{}, Failed: []ImageFailure{}}
	defer func() {
		status := auditlog.StatusSuccess
		if res.Status != model.BatchStatusSuccess {
			status = auditlog.StatusFailed
		}
		service.audit.Log(auditlog.Entry{StoreID: st.ID, Type: "image_replace",
			ResourceID: strconv.FormatInt(req.ProductID, 10), Status: status, Payload: res})
	}()

	current, err := client.ListProductImages(ctx, req.ProductID)
	if err != nil {
		res.Failed = append(res.Failed, ImageFailure{Reason: err.Error()})
		res.Status = model.BatchStatusFail
		return res
	}

	// 1. добавление
	for _, img := range req.Images {
		created, err := client.CreateProductImage(ctx, req.ProductID, img)
		if err != nil {
			res.Failed = append(res.Failed, ImageFailure{Src: img.Src, Reason: err.Error()})
			continue
		}
		res.Added = append(res.Added, created.ID)
	}

	if len(res.Failed) > 0 {
		// откат: старый набор остаётся нетронутым
		for _, id := range res.Added {
			if err := client.DeleteProductImage(ctx, req.ProductID, id); err != nil && !shopifyclient.IsNotFound(err) {
				service.zaplog.Warn("image rollback",
					zap.Int64("product_id", req.ProductID),
					zap.Int64("image_id", id),
					zap.Error(err))
			}
		}
		res.Added = []int64{}
		res.Status = model.BatchStatusFail
		return res
	}

	// 2. удаление старых
	currentIDs := make([]int64, 0, len(current)+len(res.Added))
	for _, img := range current {
		currentIDs = append(currentIDs, img.ID)
	}
	currentIDs = append(currentIDs, res.Added...)
	plan := reconcile.Diff(res.Added, currentIDs)

	for _, id := range plan.ToRemove {
		err := client.DeleteProductImage(ctx, req.ProductID, id)
		if err != nil && !shopifyclient.IsNotFound(err) {
			res.Failed = append(res.Failed, ImageFailure{ImageID: id, Reason: err.Error()})
			continue
		}
		res.Removed = append(res.Removed, id)
	}

	res.Status = model.BatchStatusOf(len(res.Added)+len(res.Removed), len(res.Failed))
	return res
}
