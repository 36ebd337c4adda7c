// Command ntfsextract is the line-oriented shell front-end over the
// extraction engine: partition/boot-sector discovery, MFT harvest and
// catalogue build happen once at startup, then the shell exposes
// search, extract, and live-tap start/stop commands against the
// resulting catalogue. The interactive shell itself is plumbing — only
// its command surface is part of the engine's contract.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shubham030/ntfstap/internal/bootsect"
	"github.com/shubham030/ntfstap/internal/catalog"
	"github.com/shubham030/ntfstap/internal/config"
	"github.com/shubham030/ntfstap/internal/engine"
	"github.com/shubham030/ntfstap/internal/extract"
	"github.com/shubham030/ntfstap/internal/harvest"
	"github.com/shubham030/ntfstap/internal/mftrec"
	"github.com/shubham030/ntfstap/internal/tap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// shellState distinguishes the root prompt from a nested search
// sub-prompt: search commands enter a nested prompt terminated by exit.
type shellState int

const (
	stateRoot shellState = iota
	stateSearchRecordNumber
	stateSearchRecordName
	stateSearchRecordOffset
	stateListFiles
)

type fileItem struct{ entry catalog.Entry }

func (i fileItem) Title() string { return i.entry.Name }
func (i fileItem) Description() string {
	return fmt.Sprintf("record %d, sector %d, %d bytes", i.entry.RecordNumber, i.entry.SectorOffsetOfRecord, i.entry.SizeBytes)
}
func (i fileItem) FilterValue() string { return i.entry.Name }

type model struct {
	ctx    *engine.Context
	cfg    *config.Config
	logger *slog.Logger

	state   shellState
	input   textinput.Model
	list    list.Model
	history []string
	width   int
	height  int

	tapCancel context.CancelFunc
}

func newModel(ctx *engine.Context, cfg *config.Config, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Focus()
	ti.Width = 60

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Catalogued files"
	l.SetShowStatusBar(false)

	return model{
		ctx:     ctx,
		cfg:     cfg,
		logger:  logger,
		state:   stateRoot,
		input:   ti,
		list:    l,
		history: []string{"Type 'help' for the command list."},
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.state == stateListFiles {
				m.state = stateRoot
				return m, nil
			}
		}

		if m.state == stateListFiles {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		if msg.String() == "enter" {
			return m.handleLine(strings.TrimSpace(m.input.Value()))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleLine(line string) (tea.Model, tea.Cmd) {
	m.input.SetValue("")

	switch m.state {
	case stateSearchRecordNumber, stateSearchRecordName, stateSearchRecordOffset:
		if line == "exit" {
			m.state = stateRoot
			m.log("back to main prompt")
			return m, nil
		}
		m.runSearch(line)
		return m, nil
	}

	switch {
	case line == "exit":
		if m.tapCancel != nil {
			m.tapCancel()
		}
		return m, tea.Quit
	case line == "help":
		m.log(helpText())
	case line == "print files":
		m.populateFileList()
		m.state = stateListFiles
	case line == "search using record number":
		m.state = stateSearchRecordNumber
		m.log("enter a record number ('exit' to return)")
	case line == "search using record name":
		m.state = stateSearchRecordName
		m.log("enter a record name ('exit' to return)")
	case line == "search using record offset":
		m.state = stateSearchRecordOffset
		m.log("enter a cluster offset ('exit' to return)")
	case strings.HasPrefix(line, "extract using record number "):
		m.extractByRecordNumber(strings.TrimPrefix(line, "extract using record number "))
	case strings.HasPrefix(line, "extract using qemu offset "):
		m.extractByQemuOffset(strings.TrimPrefix(line, "extract using qemu offset "))
	case line == "start server":
		m.startServer()
	case line == "stop server":
		m.stopServer()
	case line == "":
		// ignore blank lines
	default:
		m.log(errorStyle.Render("unrecognised command: " + line))
	}

	return m, nil
}

func (m *model) runSearch(query string) {
	var results []catalog.Entry
	switch m.state {
	case stateSearchRecordNumber:
		n, err := strconv.ParseUint(query, 10, 32)
		if err != nil {
			m.log(errorStyle.Render("not a valid record number: " + query))
			return
		}
		results = m.ctx.Catalogue.ByRecordNumber(uint32(n))
	case stateSearchRecordName:
		results = m.ctx.Catalogue.ByName(query)
	case stateSearchRecordOffset:
		n, err := strconv.ParseInt(query, 10, 64)
		if err != nil {
			m.log(errorStyle.Render("not a valid offset: " + query))
			return
		}
		results = m.ctx.Catalogue.ByClusterOffset(n)
	}

	if len(results) == 0 {
		m.log("no matches")
		return
	}
	for _, e := range results {
		m.log(fmt.Sprintf("record %d | %s | sector %d | %d bytes", e.RecordNumber, e.Name, e.SectorOffsetOfRecord, e.SizeBytes))
	}
}

func (m *model) extractByRecordNumber(arg string) {
	n, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil {
		m.log(errorStyle.Render("not a valid record number: " + arg))
		return
	}
	matches := m.ctx.Catalogue.ByRecordNumber(uint32(n))
	if len(matches) == 0 {
		m.log(errorStyle.Render("no catalogued file with that record number"))
		return
	}
	m.extractEntry(matches[0])
}

func (m *model) extractByQemuOffset(arg string) {
	off, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		m.log(errorStyle.Render("not a valid offset: " + arg))
		return
	}
	matches := m.ctx.Catalogue.ByClusterOffset(off)
	if len(matches) == 0 {
		m.log(errorStyle.Render("no catalogued file at that cluster offset"))
		return
	}
	m.extractEntry(matches[0])
}

func (m *model) extractEntry(e catalog.Entry) {
	var path string
	err := m.ctx.WithIOLock(func() error {
		var extractErr error
		if e.Resident {
			path, extractErr = extract.Resident(e, m.ctx.OutputRoot)
		} else {
			path, extractErr = extract.NonResident(m.ctx.Device, e, m.ctx.PartitionBase, m.ctx.BytesPerCluster, m.ctx.OutputRoot, m.extractOptions())
		}
		return extractErr
	})
	if err != nil {
		m.log(errorStyle.Render("extraction failed: " + err.Error()))
		return
	}
	m.log(successStyle.Render("extracted to " + path))
}

// extractOptions builds the extractor options from the configuration,
// including the sparse-run policy selected by sparse_fill_policy.
func (m *model) extractOptions() extract.Options {
	opts := extract.Options{MaxExtractBytes: m.cfg.MaxExtractFileSize}
	if m.cfg.SparseFillPolicy == "skip" {
		opts.SparsePolicy = extract.SparseSkip
	}
	return opts
}

func (m *model) startServer() {
	if m.ctx.TapState.State() == tap.Running {
		m.log(errorStyle.Render("server already running"))
		return
	}
	if err := m.ctx.TapState.Start(); err != nil {
		m.log(errorStyle.Render(err.Error()))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.tapCancel = cancel
	m.ctx.TapQueue = tap.NewQueue()

	server := tap.NewServer(m.cfg.SocketPath, m.ctx.TapQueue, m.logger)
	worker := &tap.Worker{
		Queue:           m.ctx.TapQueue,
		Device:          m.ctx.Device,
		PartitionBase:   m.ctx.PartitionBase,
		BytesPerCluster: m.ctx.BytesPerCluster,
		OutRoot:         m.ctx.OutputRoot,
		MaxAge:          m.cfg.MaxFileModifyAge,
		DeletedPolicy:   m.ctx.DeletedPolicy,
		ExtractOpts:     m.extractOptions(),
		Logger:          m.logger,
		IOLock:          m.ctx.WithIOLock,
	}

	go func() {
		if err := server.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("tap server exited", "err", err)
		}
	}()
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("tap worker exited", "err", err)
		}
	}()

	m.log(successStyle.Render("live tap started on " + m.cfg.SocketPath))
}

func (m *model) stopServer() {
	if m.ctx.TapState.State() != tap.Running {
		m.log(errorStyle.Render("server is not running"))
		return
	}
	if m.tapCancel != nil {
		m.tapCancel()
	}
	_ = m.ctx.TapState.Stop()
	m.log("live tap stopped")
}

func (m *model) populateFileList() {
	items := make([]list.Item, 0, len(m.ctx.Catalogue.Entries))
	for _, e := range m.ctx.Catalogue.Entries {
		items = append(items, fileItem{entry: e})
	}
	m.list.SetItems(items)
}

func (m *model) log(line string) {
	m.history = append(m.history, line)
	if len(m.history) > 200 {
		m.history = m.history[len(m.history)-200:]
	}
}

func helpText() string {
	return strings.Join([]string{
		"help                               show this text",
		"print files                        list the catalogue",
		"search using record number         nested prompt, by record number",
		"search using record name           nested prompt, by name",
		"search using record offset         nested prompt, by cluster offset",
		"extract using record number <n>    extract by record number",
		"extract using qemu offset <n>      extract by cluster offset",
		"start server                       start the live tap",
		"stop server                        stop the live tap",
		"exit                               quit",
	}, "\n")
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" ntfsextract "))
	b.WriteString("\n\n")

	if m.state == stateListFiles {
		b.WriteString(m.list.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc to return"))
		return b.String()
	}

	start := 0
	if len(m.history) > 15 {
		start = len(m.history) - 15
	}
	for _, line := range m.history[start:] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n> ")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("ctrl+c to quit"))
	return b.String()
}

func main() {
	configPath := "ntfstap.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	deletedPolicy := mftrec.DeletedPolicyCorrected
	if cfg.DeletedPolicy == "literal" {
		deletedPolicy = mftrec.DeletedPolicyLiteral
	}

	ctx, err := engine.Open(cfg.DevicePath, cfg.PartitionIndex, cfg.OutputRoot, deletedPolicy, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup error:", err)
		os.Exit(1)
	}
	defer ctx.Close()

	mftImagePath := fmt.Sprintf("%s/$MFT%d.data", cfg.OutputRoot, cfg.PartitionIndex)
	mftImage, err := os.Create(mftImagePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup error creating local MFT image:", err)
		os.Exit(1)
	}

	sparsePolicy := harvest.SparseZeroFill
	if cfg.SparseFillPolicy == "skip" {
		sparsePolicy = harvest.SparseSkip
	}

	bs := bootsect.BootSector{
		BytesPerCluster: ctx.BytesPerCluster,
		MFTByteOffset:   ctx.MFTByteOffset,
	}

	stats, err := harvest.Harvest(ctx.Device, ctx.PartitionBase, bs, mftImage, sparsePolicy)
	mftImage.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "harvest error:", err)
		os.Exit(1)
	}
	logger.Info("harvested $MFT", "runs", stats.RunsWritten, "bytes", stats.BytesWritten)

	mftImageReader, err := os.Open(mftImagePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup error reopening local MFT image:", err)
		os.Exit(1)
	}
	defer mftImageReader.Close()

	cat, err := catalog.Build(mftImageReader, ctx.BytesPerCluster, ctx.SectorsPerCluster, deletedPolicy)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalogue build error:", err)
		os.Exit(1)
	}
	ctx.Catalogue = cat
	logger.Info("catalogue built", "files", cat.Stats.Files, "deleted", cat.Stats.Deleted, "directories", cat.Stats.Directories)

	p := tea.NewProgram(newModel(ctx, cfg, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "shell error:", err)
		os.Exit(1)
	}
}
