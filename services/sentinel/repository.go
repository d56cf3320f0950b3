package sentinel

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketState  = "state"
	bucketAlerts = "alerts"
	keyInternet  = "internet"
)

// Internet states.
const (
	StatusUnknown                = "unknown"
	StatusUp                     = "up"
	StatusDown                   = "down"
	StatusDownForProlongedPeriod = "downForProlongedPeriod"
)

// InternetState is the last observed internet status and when it began.
type InternetState struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Repository persists the sentinel state and undispatched alerts.
type Repository struct {
	db *bolt.DB
}

// OpenRepository opens or creates the database at path.
func OpenRepository(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening sentinel database %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketState, bucketAlerts} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// InternetState returns the stored state, or StatusUnknown when none is
// stored yet.
func (r *Repository) InternetState() (InternetState, error) {
	state := InternetState{Status: StatusUnknown}
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketState)).Get([]byte(keyInternet))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &state)
	})
	if state.Status == "" {
		state.Status = StatusUnknown
	}
	return state, errors.Wrap(err, "reading internet state")
}

func (r *Repository) UpdateInternetState(state InternetState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketState)).Put([]byte(keyInternet), data)
	})
}

// InsertAlert stores alert unless one with the same key is already
// waiting. It reports whether the alert was stored.
func (r *Repository) InsertAlert(alert Alert) (bool, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return false, err
	}
	inserted := false
	err = r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAlerts))
		if b.Get([]byte(alert.Key)) != nil {
			return nil
		}
		inserted = true
		return b.Put([]byte(alert.Key), data)
	})
	return inserted, err
}

// Alerts returns the waiting alerts, oldest first.
func (r *Repository) Alerts() ([]Alert, error) {
	var alerts []Alert
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketAlerts)).ForEach(func(k, v []byte) error {
			var alert Alert
			if err := json.Unmarshal(v, &alert); err != nil {
				return errors.Wrapf(err, "decoding alert %s", k)
			}
			alerts = append(alerts, alert)
			return nil
		})
	})
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Time < alerts[j].Time
	})
	return alerts, err
}

func (r *Repository) DeleteAlert(alert Alert) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketAlerts)).Delete([]byte(alert.Key))
	})
}

// UpdateAlert replaces a waiting alert. Alerts no longer stored are left
// deleted.
func (r *Repository) UpdateAlert(alert Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAlerts))
		if b.Get([]byte(alert.Key)) == nil {
			return nil
		}
		return b.Put([]byte(alert.Key), data)
	})
}
