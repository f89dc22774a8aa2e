package workers

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-courier/internal/database"
	"code-courier/internal/email"
	"code-courier/internal/ocr"
)

type fakeMail struct {
	mu        sync.Mutex
	queries   []string
	order     []string
	messages  map[string]*email.RawMessage
	listErr   error
	listEntry chan struct{}
	listGate  chan struct{}
}

func (f *fakeMail) ListMessages(query string) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.listEntry != nil {
		f.listEntry <- struct{}{}
	}
	if f.listGate != nil {
		<-f.listGate
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.order, nil
}

func (f *fakeMail) GetMessage(id string) (*email.RawMessage, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (f *fakeMail) GetAttachment(messageID, attachmentID string) ([]byte, error) {
	return nil, errors.New("no attachments in fake")
}

type fakeStore struct {
	mu        sync.Mutex
	inserted  []*database.VerificationCode
	seen      map[string]bool
	insertErr error
	lastDate  time.Time
}

func (f *fakeStore) InsertIfAbsent(code *database.VerificationCode) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	key := code.OwnerID + "|" + code.EmailID + "|" + code.Code
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.inserted = append(f.inserted, code)
	return true, nil
}

func (f *fakeStore) LastEmailDate(ownerID string) (time.Time, error) {
	return f.lastDate, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []*database.VerificationCode
}

func (f *fakeNotifier) NotifyNewCode(code *database.VerificationCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, code)
}

type fakeImages struct {
	codes  []string
	err    error
	called int
}

func (f *fakeImages) ExtractFromImages(payload *email.MimePart, fetch ocr.FetchAttachment) ([]string, error) {
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	return f.codes, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func latamMessage(id string) *email.RawMessage {
	return &email.RawMessage{
		ID:      id,
		From:    "LATAM <noreply@info.latam.com>",
		To:      "owner@gmail.com",
		Subject: "Código de verificação",
		Date:    time.Date(2025, 8, 14, 10, 30, 0, 0, time.UTC),
		Body:    "Olá MARIA SILVA, Seu código de verificação: 794945",
	}
}

func newTestCoordinator(mail *fakeMail, store *fakeStore, notifier *fakeNotifier, images ImageCodeExtractor) *Coordinator {
	config := &CoordinatorConfig{
		SenderDomains: []string{"info.latam.com", "comunicado.smiles.com.br"},
	}
	return NewCoordinator(config, mail, store, notifier, images, testLogger())
}

func TestRunExtractionPipeline(t *testing.T) {
	mail := &fakeMail{
		order: []string{"msg-1", "msg-2", "msg-3"},
		messages: map[string]*email.RawMessage{
			"msg-1": latamMessage("msg-1"),
			"msg-2": {
				ID:      "msg-2",
				From:    "noreply@info.latam.com",
				Subject: "Aproveite 50% de desconto em milhas",
				Body:    "promo",
			},
			"msg-3": {
				ID:      "msg-3",
				From:    "smiles@comunicado.smiles.com.br",
				Subject: "Código de acesso",
				Body:    "PEDRO ALVES, use esse código de acesso: 483920",
			},
		},
	}
	store := &fakeStore{}
	notifier := &fakeNotifier{}

	coordinator := newTestCoordinator(mail, store, notifier, nil)

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Examined)
	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 0, summary.Errors)
	assert.False(t, summary.Busy)

	require.Len(t, store.inserted, 2)
	first := store.inserted[0]
	assert.Equal(t, "owner-1", first.OwnerID)
	assert.Equal(t, "msg-1", first.EmailID)
	assert.Equal(t, "794945", first.Code)
	assert.Equal(t, "LATAM", first.Airline)
	assert.Equal(t, "MARIA SILVA", first.CustomerName)
	assert.Equal(t, "Olá MARIA SILVA, Seu código de verificação: 794945", first.BodyExcerpt)
	require.NotNil(t, first.EmailDate)

	second := store.inserted[1]
	assert.Equal(t, "483920", second.Code)
	assert.Equal(t, "SMILES", second.Airline)
	assert.Equal(t, "PEDRO ALVES", second.CustomerName)

	assert.Len(t, notifier.notified, 2)
}

func TestRunExtractionDuplicates(t *testing.T) {
	mail := &fakeMail{
		order: []string{"msg-1"},
		messages: map[string]*email.RawMessage{
			"msg-1": latamMessage("msg-1"),
		},
	}
	store := &fakeStore{}
	coordinator := newTestCoordinator(mail, store, nil, nil)

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)

	// second run over the same message hits the dedup path
	summary, err = coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Saved)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestRunExtractionDryRun(t *testing.T) {
	mail := &fakeMail{
		order: []string{"msg-1"},
		messages: map[string]*email.RawMessage{
			"msg-1": latamMessage("msg-1"),
		},
	}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	config := &CoordinatorConfig{
		SenderDomains: []string{"info.latam.com"},
		DryRun:        true,
	}
	coordinator := NewCoordinator(config, mail, store, notifier, nil, testLogger())

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 0, summary.Saved)
	assert.Empty(t, store.seen)
	assert.Empty(t, notifier.notified)
}

func TestRunExtractionBodyExcerptTruncated(t *testing.T) {
	msg := latamMessage("msg-1")
	msg.Body = msg.Body + " " + strings.Repeat("çã", 400)
	mail := &fakeMail{
		order:    []string{"msg-1"},
		messages: map[string]*email.RawMessage{"msg-1": msg},
	}
	store := &fakeStore{}
	notifier := &fakeNotifier{}

	coordinator := newTestCoordinator(mail, store, notifier, nil)
	_, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	excerpt := store.inserted[0].BodyExcerpt
	assert.Equal(t, bodyExcerptLimit, utf8.RuneCountInString(excerpt))
	assert.True(t, strings.HasPrefix(msg.Body, excerpt))
}

func TestRunExtractionBusy(t *testing.T) {
	mail := &fakeMail{
		listEntry: make(chan struct{}),
		listGate:  make(chan struct{}),
		order:     []string{},
	}
	store := &fakeStore{}
	coordinator := newTestCoordinator(mail, store, nil, nil)

	done := make(chan *RunSummary)
	go func() {
		summary, _ := coordinator.RunExtraction("owner-1", false)
		done <- summary
	}()

	// wait until the first run is inside the mail search
	<-mail.listEntry

	busy, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.True(t, busy.Busy)

	close(mail.listGate)
	first := <-done
	assert.False(t, first.Busy)

	// no goroutines left, safe to disable the gates
	mail.listEntry = nil
	mail.listGate = nil

	// a different owner was never blocked by owner-1's lock
	other, err := coordinator.RunExtraction("owner-2", false)
	require.NoError(t, err)
	assert.False(t, other.Busy)

	// lock is released after the run completes
	again, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.False(t, again.Busy)
}

func TestRunExtractionReleasesLockAfterFailure(t *testing.T) {
	mail := &fakeMail{listErr: errors.New("gmail down")}
	store := &fakeStore{}
	coordinator := newTestCoordinator(mail, store, nil, nil)

	_, err := coordinator.RunExtraction("owner-1", false)
	require.Error(t, err)

	mail.listErr = nil
	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.False(t, summary.Busy)
}

func TestRunExtractionOnlyNewWindow(t *testing.T) {
	mail := &fakeMail{}
	store := &fakeStore{
		lastDate: time.Date(2025, 8, 14, 10, 30, 0, 0, time.UTC),
	}
	coordinator := newTestCoordinator(mail, store, nil, nil)

	_, err := coordinator.RunExtraction("owner-1", true)
	require.NoError(t, err)

	require.Len(t, mail.queries, 1)
	assert.Contains(t, mail.queries[0], "after:2025/08/14")
	assert.Contains(t, mail.queries[0], "from:info.latam.com")

	// without onlyNew there is no date bound
	_, err = coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)
	assert.NotContains(t, mail.queries[1], "after:")
}

func TestRunExtractionOCRFallback(t *testing.T) {
	msg := latamMessage("msg-1")
	msg.Body = "O código está na imagem em anexo"
	msg.Payload = &email.MimePart{
		MimeType: "multipart/mixed",
		Parts:    []*email.MimePart{{MimeType: "image/png", AttachmentID: "att-1"}},
	}

	mail := &fakeMail{
		order:    []string{"msg-1"},
		messages: map[string]*email.RawMessage{"msg-1": msg},
	}
	store := &fakeStore{}
	images := &fakeImages{codes: []string{"483920"}}
	coordinator := newTestCoordinator(mail, store, nil, images)

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, images.called)
	assert.Equal(t, 1, summary.Saved)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "483920", store.inserted[0].Code)
}

func TestRunExtractionOCRFailureDoesNotAbort(t *testing.T) {
	msg := latamMessage("msg-1")
	msg.Body = "O código está na imagem em anexo"
	msg.Payload = &email.MimePart{MimeType: "image/png", AttachmentID: "att-1"}

	mail := &fakeMail{
		order:    []string{"msg-1", "msg-2"},
		messages: map[string]*email.RawMessage{"msg-1": msg, "msg-2": latamMessage("msg-2")},
	}
	store := &fakeStore{}
	images := &fakeImages{err: errors.New("tesseract missing")}
	coordinator := newTestCoordinator(mail, store, nil, images)

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Saved)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "msg-2", store.inserted[0].EmailID)
}

func TestRunExtractionFetchErrorCounted(t *testing.T) {
	mail := &fakeMail{
		order:    []string{"missing", "msg-1"},
		messages: map[string]*email.RawMessage{"msg-1": latamMessage("msg-1")},
	}
	store := &fakeStore{}
	coordinator := newTestCoordinator(mail, store, nil, nil)

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Saved)
}

func TestRunExtractionPersistErrorCounted(t *testing.T) {
	mail := &fakeMail{
		order:    []string{"msg-1"},
		messages: map[string]*email.RawMessage{"msg-1": latamMessage("msg-1")},
	}
	store := &fakeStore{insertErr: errors.New("disk full")}
	coordinator := newTestCoordinator(mail, store, nil, nil)

	summary, err := coordinator.RunExtraction("owner-1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.Saved)
}
