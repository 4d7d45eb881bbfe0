package services

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// FakeEmailSender records sent messages instead of delivering them.
type FakeEmailSender struct {
	Sent        []Message
	ReturnError bool
	lock        sync.Mutex
}

func NewFakeEmailSender() *FakeEmailSender {
	return &FakeEmailSender{}
}

func (s *FakeEmailSender) Send(ctx context.Context, msg Message) error {
	if s.ReturnError {
		return errors.New("could not send email to " + msg.To)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Sent = append(s.Sent, msg)
	return nil
}

func (s *FakeEmailSender) SentCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.Sent)
}

// LastToken extracts the reset token from the link of the last message.
func (s *FakeEmailSender) LastToken() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.Sent) == 0 {
		panic("no email sent")
	}
	msg := s.Sent[len(s.Sent)-1]
	for _, field := range strings.Fields(msg.Text) {
		if u, err := url.Parse(field); err == nil && u.Query().Get("token") != "" {
			return u.Query().Get("token")
		}
	}
	panic("no reset link in email")
}

// FakePasswordHasher is a fast, insecure hasher for tests.
type FakePasswordHasher struct{}

func NewFakePasswordHasher() *FakePasswordHasher {
	return &FakePasswordHasher{}
}

func (h *FakePasswordHasher) Hash(password string) (string, error) {
	hash := md5.New()
	io.WriteString(hash, password)
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

func (h *FakePasswordHasher) Verify(password string, hash string) bool {
	actual, _ := h.Hash(password)
	return actual == hash
}

// FakeEventRecorder counts password events by operation and outcome.
type FakeEventRecorder struct {
	Events map[string]int
	lock   sync.Mutex
}

func NewFakeEventRecorder() *FakeEventRecorder {
	return &FakeEventRecorder{Events: map[string]int{}}
}

func (r *FakeEventRecorder) PasswordEvent(operation string, outcome string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Events[operation+"/"+outcome]++
}

func (r *FakeEventRecorder) Count(operation string, outcome string) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.Events[operation+"/"+outcome]
}

// FakeImageStore keeps uploads in memory.
type FakeImageStore struct {
	Uploaded    []string
	Deleted     []string
	ReturnError bool
	// FailAfter makes uploads fail once that many have succeeded. Zero
	// means never.
	FailAfter   int
	lock        sync.Mutex
}

func (s *FakeImageStore) Upload(ctx context.Context, packID string, filename string, contentType string, body io.Reader) (string, error) {
	if s.ReturnError || (s.FailAfter > 0 && s.uploadedCount() >= s.FailAfter) {
		return "", errors.New("could not upload " + filename)
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	url := "https://images.test/packs/" + packID + "/" + filename
	s.Uploaded = append(s.Uploaded, url)
	return url, nil
}

func (s *FakeImageStore) Delete(ctx context.Context, url string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Deleted = append(s.Deleted, url)
	return nil
}

func (s *FakeImageStore) uploadedCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.Uploaded)
}
