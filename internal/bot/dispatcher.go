package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"taskbot/internal/ai"
	"taskbot/internal/reminder"
	"taskbot/internal/runtime/supervisor"
	"taskbot/internal/task"
	"taskbot/internal/task/scheduler"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

const (
	DefaultTextTimeout  = 60 * time.Second
	DefaultVoiceTimeout = 2 * time.Minute
	defaultQueueSize    = 256
	defaultLanguage     = "ru"
)

// Chat is the slice of the transport the dispatcher talks to.
type Chat interface {
	transport.Sender
	Typing(ctx context.Context, to transport.ChatTarget) error
	Download(ctx context.Context, fileID, dst string) error
	Delete(ctx context.Context, ref transport.MessageRef) error
}

type Extractor interface {
	Extract(ctx context.Context, userText string) (task.Draft, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, path, languageHint string) (string, error)
}

type TaskStore interface {
	CreateTask(ctx context.Context, recipientID int64, text string, dueAt *time.Time) (int64, error)
	ListUserTasks(ctx context.Context, recipientID int64, includeCompleted bool) ([]task.Task, error)
	UpsertUser(ctx context.Context, id int64, username string) error
}

type Registrar interface {
	Register(id string, fireAt time.Time, p scheduler.Payload) error
}

// Config wires a Dispatcher. Transcriber may be nil (voice disabled).
type Config struct {
	Chat        Chat
	Extractor   Extractor
	Transcriber Transcriber
	Store       TaskStore
	Scheduler   Registrar
	Location    *time.Location

	AllowedUserIDs []int64
	Language       string // transcription hint, default "ru"
	Workers        int    // default NumCPU, at least 2
	TextTimeout    time.Duration
	VoiceTimeout   time.Duration
}

// Dispatcher routes updates to handlers on a bounded worker pool.
type Dispatcher struct {
	cfg     Config
	log     logx.Logger
	allowed atomic.Pointer[[]int64]

	jobs chan func()
}

func NewDispatcher(cfg Config, log logx.Logger) (*Dispatcher, error) {
	if cfg.Chat == nil || cfg.Extractor == nil || cfg.Store == nil || cfg.Scheduler == nil {
		return nil, errors.New("bot: chat, extractor, store and scheduler are required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Workers <= 0 {
		cfg.Workers = max(runtime.NumCPU(), 2)
	}
	if cfg.TextTimeout <= 0 {
		cfg.TextTimeout = DefaultTextTimeout
	}
	if cfg.VoiceTimeout <= 0 {
		cfg.VoiceTimeout = DefaultVoiceTimeout
	}
	d := &Dispatcher{cfg: cfg, log: log, jobs: make(chan func(), defaultQueueSize)}
	d.SetAllowed(cfg.AllowedUserIDs)
	return d, nil
}

// Commands is the command menu published to the chat client.
func Commands() []transport.BotCommand {
	return []transport.BotCommand{
		{Command: "start", Description: "Начать работу и показать справку"},
		{Command: "mytasks", Description: "Мои задачи"},
	}
}

// SetAllowed replaces the access allowlist. Safe during hot reload.
func (d *Dispatcher) SetAllowed(ids []int64) {
	cp := append([]int64(nil), ids...)
	d.allowed.Store(&cp)
}

func (d *Dispatcher) allowedIDs() []int64 {
	if p := d.allowed.Load(); p != nil {
		return *p
	}
	return nil
}

// Run consumes updates until ctx is done or the channel closes, then drains
// in-flight handlers for a short grace period.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan transport.Update) error {
	sup := supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(d.log),
		supervisor.WithCancelOnError(false),
	)
	d.log.Info("dispatcher started", logx.Int("workers", d.cfg.Workers), logx.Int("queue_cap", cap(d.jobs)))

	for i := 0; i < d.cfg.Workers; i++ {
		idx := i
		sup.GoRestart0("bot.worker."+strconv.Itoa(idx), func(c context.Context) {
			d.work(c, idx)
		}, supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}

	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Stop(wctx)
		cancel()
		d.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			d.route(ctx, up)
		}
	}
}

func (d *Dispatcher) work(ctx context.Context, idx int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			func() {
				defer func() {
					if r := recover(); r != nil {
						d.log.Error("panic in handler job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
					}
				}()
				job()
			}()
		}
	}
}

func (d *Dispatcher) route(ctx context.Context, up transport.Update) {
	msg := up.Message
	if msg == nil {
		return
	}

	var (
		name    string
		handle  HandlerFunc
		timeout = d.cfg.TextTimeout
	)
	switch {
	case up.Kind == transport.UpdateVoice && msg.Voice != nil:
		name, handle, timeout = "voice", d.handleVoice, d.cfg.VoiceTimeout
	case strings.HasPrefix(strings.TrimSpace(msg.Text), "/"):
		name = commandWord(msg.Text)
		switch name {
		case "start":
			handle = d.handleStart
		case "mytasks":
			handle = d.handleMyTasks
		default:
			// unknown commands are answered with the help text
			handle = d.handleStart
		}
	case strings.TrimSpace(msg.Text) != "":
		name, handle = "text", d.handleText
	default:
		return
	}

	rid := newReqID()
	req := &Request{
		Update:   up,
		Chat:     transport.ChatTarget{ChatID: msg.ChatID},
		FromID:   msg.FromID,
		Username: msg.FromUsername,
		Name:     msg.FromName,
		Command:  name,
		ReqID:    rid,
		Logger: d.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
		),
	}

	final := Chain(handle,
		MWPanicRecover(d.log),
		MWRequestLog(d.log),
		MWAllowlist(d.allowedIDs, d.deny),
		MWTimeout(timeout),
	)

	select {
	case d.jobs <- func() { _ = final(ctx, req) }:
	default:
		d.log.Warn("handler queue full; update dropped", logx.String("rid", rid), logx.Int("queue_cap", cap(d.jobs)))
	}
}

func (d *Dispatcher) deny(ctx context.Context, req *Request) {
	d.reply(ctx, req, textAccessDenied)
}

func (d *Dispatcher) reply(ctx context.Context, req *Request, text string) {
	if _, err := d.cfg.Chat.SendText(ctx, req.Chat, text, &transport.SendOptions{DisablePreview: true}); err != nil {
		req.Logger.Warn("reply failed", logx.Err(err))
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, req *Request) error {
	if err := d.cfg.Store.UpsertUser(ctx, req.FromID, req.Username); err != nil {
		// the greeting still goes out; the user row is refreshed on the next /start
		req.Logger.Warn("upsert user failed", logx.Err(err))
	}
	d.reply(ctx, req, startText(req.Name))
	return nil
}

func (d *Dispatcher) handleMyTasks(ctx context.Context, req *Request) error {
	tasks, err := d.cfg.Store.ListUserTasks(ctx, req.FromID, false)
	if err != nil {
		d.reply(ctx, req, textListFailed)
		return err
	}
	d.reply(ctx, req, RenderTaskList(tasks, d.cfg.Location))
	return nil
}

func (d *Dispatcher) handleText(ctx context.Context, req *Request) error {
	if err := d.createFrom(ctx, req, req.Update.Message.Text); err != nil {
		d.reply(ctx, req, failureText(err, textTaskFailed))
		return err
	}
	return nil
}

func (d *Dispatcher) handleVoice(ctx context.Context, req *Request) error {
	if d.cfg.Transcriber == nil {
		d.reply(ctx, req, textVoiceDisabled)
		return nil
	}
	_ = d.cfg.Chat.Typing(ctx, req.Chat)

	text, err := d.transcribe(ctx, req)
	if err != nil {
		d.reply(ctx, req, failureText(err, textVoiceFailed))
		return err
	}
	if text == "" {
		d.reply(ctx, req, textVoiceEmpty)
		return nil
	}
	req.Logger.Debug("voice transcribed", logx.Int("chars", len([]rune(text))))

	if err := d.createFrom(ctx, req, text); err != nil {
		d.reply(ctx, req, failureText(err, textTaskFailed))
		return err
	}
	return nil
}

func (d *Dispatcher) transcribe(ctx context.Context, req *Request) (string, error) {
	voice := req.Update.Message.Voice

	dir, err := os.MkdirTemp("", "taskbot-voice-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "voice.ogg")
	if err := d.cfg.Chat.Download(ctx, voice.FileID, path); err != nil {
		return "", err
	}

	status, serr := d.cfg.Chat.SendText(ctx, req.Chat, textTranscribing, nil)
	text, err := d.cfg.Transcriber.Transcribe(ctx, path, d.cfg.Language)
	if serr == nil {
		_ = d.cfg.Chat.Delete(context.WithoutCancel(ctx), status)
	}
	return strings.TrimSpace(text), err
}

// createFrom runs extraction, stores the task and schedules its reminder.
func (d *Dispatcher) createFrom(ctx context.Context, req *Request, text string) error {
	_ = d.cfg.Chat.Typing(ctx, req.Chat)

	draft, err := d.cfg.Extractor.Extract(ctx, text)
	if err != nil {
		return err
	}

	id, err := d.cfg.Store.CreateTask(ctx, req.FromID, draft.Text, draft.DueAt)
	if err != nil {
		return err
	}
	t := task.Task{ID: id, RecipientID: req.FromID, Text: draft.Text, DueAt: draft.DueAt}

	if draft.HasDue() {
		if err := d.cfg.Scheduler.Register(task.ReminderJobID(id), *draft.DueAt, reminder.PayloadFor(t)); err != nil {
			// the task is stored; startup reconciliation registers it again
			req.Logger.Error("register reminder failed", logx.Int64("task_id", id), logx.Err(err))
		}
	}
	req.Logger.Info("task created", logx.Int64("task_id", id), logx.Bool("scheduled", draft.HasDue()))

	d.reply(ctx, req, confirmText(t, d.cfg.Location))
	return nil
}

func failureText(err error, fallback string) string {
	if ai.IsRateLimited(err) {
		return textRateLimited
	}
	return fallback
}

func commandWord(text string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	word = strings.TrimPrefix(word, "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	return strings.ToLower(word)
}

func newReqID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
