package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "findemybot/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Enabled        bool
	Workers        int
	QueueSize      int
	DefaultTimeout time.Duration
	HistorySize    int
	Timezone       string // IANA TZ, e.g. "Asia/Jakarta"
	RetryMax       int    // max retries per fired job
	RetryBase      time.Duration
	RetryMaxDelay  time.Duration
}

// Job is a unit of deferred work.
type Job func(ctx context.Context) error

type runState struct {
	mu      sync.Mutex
	running bool
}

type HistoryItem struct {
	Tag      string
	Started  time.Time
	Duration time.Duration
	Error    string
}

type task struct {
	tag     string
	timeout time.Duration
	run     Job
	state   *runState
}

type cronDef struct {
	tag     string
	spec    string // cron spec or @every
	timeout time.Duration
	job     Job
	entryID cron.EntryID
	state   *runState
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []cronDef

	queue  chan task
	stopCh chan struct{}
	// stopDone is non-nil while a Stop() is in progress; closed when workers exit.
	stopDone chan struct{}

	// one-shot timers (timers are runtime; onceAt/onceJob are persistent
	// definitions rebuilt into timers on Start)
	tmu     sync.Mutex
	timers  map[string]*time.Timer
	onceAt  map[string]time.Time
	onceJob map[string]Job
	onceVer map[string]uint64

	hmu       sync.Mutex
	history   []HistoryItem
	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

// EntryInfo describes one pending registration (for /status).
type EntryInfo struct {
	Tag  string
	Spec string // empty for one-shot entries
	Next time.Time
}

type Snapshot struct {
	Enabled  bool
	Timezone string
	Workers  int
	QueueLen int
	Entries  []EntryInfo
	History  []HistoryItem
}
