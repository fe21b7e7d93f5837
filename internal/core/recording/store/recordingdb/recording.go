package recordingdb

import (
	"context"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ridecare/ridecare/internal/core/recording"
	"gorm.io/gorm"
)

var _ recording.RecordingStorer = Recording{}

// Recording Related business namespaces
type Recording DB

// NewRecording instance object
func NewRecording(db *gorm.DB) Recording {
	return Recording{db: db}
}

// Find implements recording.RecordingStorer.
func (d Recording) Find(ctx context.Context, bs *[]*recording.Recording, page orm.Pager, opts ...orm.QueryOption) (int64, error) {
	var total int64
	if err := apply(d.db.WithContext(ctx).Model(new(recording.Recording)), opts).Count(&total).Error; err != nil || total == 0 {
		return total, err
	}
	db := apply(d.db.WithContext(ctx), opts)
	return total, db.Offset(page.Offset()).Limit(page.Limit()).Find(bs).Error
}

// Get implements recording.RecordingStorer.
func (d Recording) Get(ctx context.Context, model *recording.Recording, opts ...orm.QueryOption) error {
	return apply(d.db.WithContext(ctx), opts).First(model).Error
}

// Add implements recording.RecordingStorer.
func (d Recording) Add(ctx context.Context, model *recording.Recording) error {
	return d.db.WithContext(ctx).Create(model).Error
}

// Edit implements recording.RecordingStorer.
func (d Recording) Edit(ctx context.Context, model *recording.Recording, changeFn func(*recording.Recording), opts ...orm.QueryOption) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return d.EditWithSession(tx, model, func(b *recording.Recording) error {
			changeFn(b)
			return nil
		}, opts...)
	})
}

// EditWithSession implements recording.RecordingStorer.
func (d Recording) EditWithSession(tx *gorm.DB, model *recording.Recording, changeFn func(b *recording.Recording) error, opts ...orm.QueryOption) error {
	if err := apply(tx, opts).First(model).Error; err != nil {
		return err
	}
	if err := changeFn(model); err != nil {
		return err
	}
	return tx.Save(model).Error
}

// Del implements recording.RecordingStorer.
func (d Recording) Del(ctx context.Context, model *recording.Recording, opts ...orm.QueryOption) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := apply(tx, opts).First(model).Error; err != nil {
			return err
		}
		return tx.Delete(model).Error
	})
}

// Count implements recording.RecordingStorer.
func (d Recording) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	var total int64
	err := apply(d.db.WithContext(ctx).Model(new(recording.Recording)), opts).Count(&total).Error
	return total, err
}

// Session implements recording.RecordingStorer.
func (d Recording) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fn := range changeFns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
