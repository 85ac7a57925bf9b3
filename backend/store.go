package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmcleod/eventdesk/model"
	"github.com/jmcleod/eventdesk/session"
	"github.com/jmcleod/eventdesk/storage"
)

// Users and their email index share a bucket so that uniqueness is checked
// and claimed in one batch. Events and registrations share a bucket for the
// same reason: the capacity check and attendee counter move together.
const (
	usersBucket  = "users"
	eventsBucket = "events"

	userPrefix  = "user/"
	emailPrefix = "email/"
	eventPrefix = "event/"
	regPrefix   = "reg/"
)

func userKey(id string) string { return userPrefix + id }

func emailKey(email string) string { return emailPrefix + email }

func eventKey(id string) string { return eventPrefix + id }

func regKey(eventID, userID string) string {
	return regPrefix + eventID + "/" + userID
}

// userRecord is the persisted form of a user.
type userRecord struct {
	model.User
	PasswordHash string `json:"passwordHash"`
}

type store struct {
	repo storage.Repository
	now  func() time.Time
}

func getJSON[T any](get func(string) ([]byte, error), key string) (T, error) {
	var v T
	data, err := get(key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, nil
}

func putJSON(put func(string, []byte) error, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return put(key, data)
}

func (s *store) bucketGet(bucket string) func(string) ([]byte, error) {
	return func(key string) ([]byte, error) { return s.repo.Get(bucket, key) }
}

func notFound(err, sentinel error) error {
	if storage.IsNotFound(err) {
		return sentinel
	}
	return err
}

func (s *store) createUser(req model.CreateUserRequest, role session.Role, passwordHash string) (model.User, error) {
	rec := userRecord{
		User: model.User{
			ID:        uuid.NewString(),
			FullName:  strings.TrimSpace(req.FullName),
			Email:     req.Email,
			Role:      role,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: passwordHash,
	}
	err := s.repo.Batch(usersBucket, func(tx storage.BatchTx) error {
		if _, err := tx.Get(emailKey(rec.Email)); err == nil {
			return ErrEmailTaken
		} else if !storage.IsNotFound(err) {
			return err
		}
		if err := putJSON(tx.Put, userKey(rec.ID), rec); err != nil {
			return err
		}
		return tx.Put(emailKey(rec.Email), []byte(rec.ID))
	})
	if err != nil {
		return model.User{}, err
	}
	return rec.User, nil
}

func (s *store) user(id string) (userRecord, error) {
	rec, err := getJSON[userRecord](s.bucketGet(usersBucket), userKey(id))
	return rec, notFound(err, ErrUserNotFound)
}

func (s *store) userByEmail(email string) (userRecord, error) {
	id, err := s.repo.Get(usersBucket, emailKey(email))
	if err != nil {
		return userRecord{}, notFound(err, ErrUserNotFound)
	}
	return s.user(string(id))
}

func (s *store) event(id string) (model.Event, error) {
	ev, err := getJSON[model.Event](s.bucketGet(eventsBucket), eventKey(id))
	return ev, notFound(err, ErrEventNotFound)
}

func (s *store) keys(bucket, prefix string) ([]string, error) {
	all, err := s.repo.List(bucket)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// listEvents returns events ordered by date, then name.
func (s *store) listEvents() ([]model.Event, error) {
	keys, err := s.keys(eventsBucket, eventPrefix)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(keys))
	for _, k := range keys {
		ev, err := getJSON[model.Event](s.bucketGet(eventsBucket), k)
		if storage.IsNotFound(err) {
			// deleted since List
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	sortEvents(events)
	return events, nil
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Name < events[j].Name
	})
}

func (s *store) createEvent(in model.EventInput, createdBy string) (model.Event, error) {
	ev := model.Event{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		Category:    in.Category,
		Location:    strings.TrimSpace(in.Location),
		MaxCapacity: in.MaxCapacity,
		Status:      model.StatusActive,
		CreatedBy:   createdBy,
		CreatedAt:   s.now().UTC(),
	}
	if in.Status != "" {
		ev.Status = in.Status
	}
	if err := putJSON(func(k string, v []byte) error { return s.repo.Put(eventsBucket, k, v) }, eventKey(ev.ID), ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// updateEvent overwrites the editable fields of an event. The attendee
// count and authorship are kept from the stored record.
func (s *store) updateEvent(id string, in model.EventInput) (model.Event, error) {
	var ev model.Event
	err := s.repo.Batch(eventsBucket, func(tx storage.BatchTx) error {
		var err error
		ev, err = getJSON[model.Event](tx.Get, eventKey(id))
		if err != nil {
			return notFound(err, ErrEventNotFound)
		}
		if in.MaxCapacity < ev.CurrentAttendees {
			return ErrCapacityBelowAttendees
		}
		ev.Name = strings.TrimSpace(in.Name)
		ev.Description = strings.TrimSpace(in.Description)
		ev.Date = in.Date
		ev.Category = in.Category
		ev.Location = strings.TrimSpace(in.Location)
		ev.MaxCapacity = in.MaxCapacity
		if in.Status != "" {
			ev.Status = in.Status
		}
		ev.UpdatedAt = s.now().UTC()
		return putJSON(tx.Put, eventKey(id), ev)
	})
	return ev, err
}

// deleteEvent removes an event and every registration for it.
func (s *store) deleteEvent(id string) error {
	regs, err := s.keys(eventsBucket, regPrefix+id+"/")
	if err != nil {
		return err
	}
	return s.repo.Batch(eventsBucket, func(tx storage.BatchTx) error {
		if _, err := tx.Get(eventKey(id)); err != nil {
			return notFound(err, ErrEventNotFound)
		}
		for _, k := range regs {
			if err := tx.Delete(k); err != nil && !storage.IsNotFound(err) {
				return err
			}
		}
		return tx.Delete(eventKey(id))
	})
}

// register adds userID to an event, checking capacity and duplicates and
// bumping the attendee count in the same batch.
func (s *store) register(eventID, userID string) (model.Registration, error) {
	reg := model.Registration{EventID: eventID, UserID: userID, RegisteredAt: s.now().UTC()}
	err := s.repo.Batch(eventsBucket, func(tx storage.BatchTx) error {
		ev, err := getJSON[model.Event](tx.Get, eventKey(eventID))
		if err != nil {
			return notFound(err, ErrEventNotFound)
		}
		if !ev.IsActive() {
			return ErrEventClosed
		}
		if _, err := tx.Get(regKey(eventID, userID)); err == nil {
			return ErrAlreadyRegistered
		} else if !storage.IsNotFound(err) {
			return err
		}
		if ev.IsFull() {
			return ErrEventFull
		}
		ev.CurrentAttendees++
		if err := putJSON(tx.Put, regKey(eventID, userID), reg); err != nil {
			return err
		}
		return putJSON(tx.Put, eventKey(eventID), ev)
	})
	if err != nil {
		return model.Registration{}, err
	}
	return reg, nil
}

func (s *store) unregister(eventID, userID string) error {
	return s.repo.Batch(eventsBucket, func(tx storage.BatchTx) error {
		ev, err := getJSON[model.Event](tx.Get, eventKey(eventID))
		if err != nil {
			return notFound(err, ErrEventNotFound)
		}
		if _, err := tx.Get(regKey(eventID, userID)); err != nil {
			return notFound(err, ErrNotRegistered)
		}
		if err := tx.Delete(regKey(eventID, userID)); err != nil {
			return err
		}
		ev.CurrentAttendees = max(0, ev.CurrentAttendees-1)
		return putJSON(tx.Put, eventKey(eventID), ev)
	})
}

// userEvents returns the events userID is registered for.
func (s *store) userEvents(userID string) ([]model.Event, error) {
	keys, err := s.keys(eventsBucket, regPrefix)
	if err != nil {
		return nil, err
	}
	events := []model.Event{}
	for _, k := range keys {
		eventID, uid, ok := strings.Cut(strings.TrimPrefix(k, regPrefix), "/")
		if !ok || uid != userID {
			continue
		}
		ev, err := s.event(eventID)
		if err != nil {
			if errors.Is(err, ErrEventNotFound) {
				continue
			}
			return nil, err
		}
		events = append(events, ev)
	}
	sortEvents(events)
	return events, nil
}
