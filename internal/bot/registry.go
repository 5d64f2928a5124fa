package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warerabot/internal/dispatch"
	"warerabot/internal/templates"
)

// Request carries the context of one invoked command
type Request struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Args      []string
	IsMod     bool
	IsOwner   bool
}

// Command is one explicit entry in the dispatch table.
// Run returns the messages to post back to the invoking channel; domain
// errors are turned into user-facing messages by the handler itself, so an
// error return here means something genuinely went wrong
type Command struct {
	Name        string
	Usage       string
	Description string
	ModOnly     bool
	OwnerOnly   bool
	Run         func(ctx context.Context, req Request) ([]dispatch.Message, error)
}

// CommandProvider is a handler that contributes commands to the registry
type CommandProvider interface {
	Commands() []Command
}

// MemberJoin describes a user joining the guild
type MemberJoin struct {
	GuildID     string
	UserID      string
	Username    string
	MemberCount int
}

// JoinHandler is a handler interested in member joins
type JoinHandler interface {
	HandleMemberJoin(ctx context.Context, join MemberJoin) error
}

// Periodic is a background job the bot ticks on its own schedule
type Periodic interface {
	Name() string
	Interval() time.Duration
	Tick(ctx context.Context) error
}

// Registry is the explicit dispatch table built at startup. Handlers are
// enumerated and registered against the event types they handle; nothing is
// discovered by naming convention
type Registry struct {
	commands  map[string]Command
	order     []string
	joins     []JoinHandler
	periodics []Periodic
}

func NewRegistry() *Registry {
	return &Registry{commands: map[string]Command{}}
}

// AddCommands registers every command of the provider.
// Two handlers claiming the same command name is a wiring bug, caught at
// startup instead of by whoever wins the lookup
func (r *Registry) AddCommands(provider CommandProvider) error {
	for _, cmd := range provider.Commands() {
		if _, taken := r.commands[cmd.Name]; taken {
			return fmt.Errorf("command %q is registered twice", cmd.Name)
		}
		r.commands[cmd.Name] = cmd
		r.order = append(r.order, cmd.Name)
	}
	return nil
}

func (r *Registry) AddJoinHandler(handler JoinHandler) {
	r.joins = append(r.joins, handler)
}

func (r *Registry) AddPeriodic(job Periodic) {
	r.periodics = append(r.periodics, job)
}

// Command looks up a command by name
func (r *Registry) Command(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Help builds the command overview embed from the dispatch table
func (r *Registry) Help(prefix string) dispatch.Message {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)

	embed := templates.Embed{Title: "Beschikbare commando's"}
	for _, name := range names {
		cmd := r.commands[name]
		usage := fmt.Sprintf("`%s %s`", prefix, cmd.Usage)
		value := cmd.Description
		if cmd.OwnerOnly {
			value += " (alleen eigenaar)"
		} else if cmd.ModOnly {
			value += " (alleen moderators)"
		}
		embed.Fields = append(embed.Fields, templates.Field{Name: usage, Value: value})
	}
	return dispatch.Message{Embeds: []templates.Embed{embed}}
}
