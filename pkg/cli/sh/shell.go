// Package sh provides the operator shell of a rig console.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rigctl/pkg/client"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *client.Config
	Client *client.Client
	Port   string
	// Out receives command output, the shell's own writer if nil.
	Out io.Writer
	// LastErr is the error of the last failed command.
	LastErr error
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&HelloCmd,
		&SetCmd,
		&GetCmd,
		&RawCmd,
		&QuitRigCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds adds more commands, used during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *client.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, cl *client.Client)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Client == nil {
			s.Fail(c, fmt.Errorf("not connected"))
			return
		}
		fn(c, s.Client)
	}
}

// Fail reports a command error.
func (s *Shell) Fail(c *ishell.Context, err error) {
	s.LastErr = err
	c.Err(err)
}

// Println prints a line of output.
func (s *Shell) Println(c *ishell.Context, val ...interface{}) {
	if s.Out != nil {
		fmt.Fprintln(s.Out, val...)
		return
	}
	c.Println(val...)
}

// Print prints a result as JSON or plain text.
func (s *Shell) Print(c *ishell.Context, key string, value interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{key: value})
		if err != nil {
			s.Fail(c, err)
			return
		}
		s.Println(c, string(out))
		return
	}
	s.Println(c, value)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect connects the console at port, discovering it when empty.
func (s *Shell) Connect(port string) error {
	conf := *s.Config
	if port != "" {
		conf.Port = port
	}
	cl, err := conf.Dial(context.Background())
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Client, s.Port = cl, conf.Port
	name := conf.Port
	if name == "" {
		name = "rig"
	}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Disconnect disconnects current console.
func (s *Shell) Disconnect() {
	if s.Client != nil {
		s.Client.Close()
		s.Client = nil
		s.Port = ""
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && (s.Config.Port != "" || !s.Config.Filter.IsEmpty()) {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect failed: %v", err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func parseValue(arg string) (uint32, error) {
	value, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid VALUE %q: %v", arg, err)
	}
	return uint32(value), nil
}

var (
	// PortsCmd lists serial ports passing the filter.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			names, err := client.FindPorts(s.Config.Filter)
			if err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			if s.OutputJSON {
				if names == nil {
					names = []string{}
				}
				s.Print(c, "ports", names)
				return
			}
			if len(names) == 0 {
				s.Println(c, "No serial ports found")
				return
			}
			for _, name := range names {
				s.Println(c, name)
			}
		},
	}

	// ConnectCmd connects a console.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			var port string
			if len(c.Args) > 0 {
				port = c.Args[0]
			}
			if err := ShellFrom(c).Connect(port); err != nil {
				ShellFrom(c).Fail(c, err)
			}
		},
	}

	// DisconnectCmd disconnects current console.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// HelloCmd checks the console is alive.
	HelloCmd = ishell.Cmd{
		Name:    "hello",
		Aliases: []string{"ping"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			reply, err := cl.Hello()
			if err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			ShellFrom(c).Print(c, "reply", reply)
		}),
	}

	// SetCmd writes a register.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "NAME VALUE",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			if len(c.Args) < 2 {
				ShellFrom(c).Fail(c, fmt.Errorf("NAME and VALUE required"))
				return
			}
			value, err := parseValue(c.Args[1])
			if err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			if err := cl.Set(c.Args[0], value); err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			ShellFrom(c).Print(c, "result", "OK")
		}),
	}

	// GetCmd reads a register.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "NAME",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			if len(c.Args) < 1 {
				ShellFrom(c).Fail(c, fmt.Errorf("NAME required"))
				return
			}
			value, err := cl.Get(c.Args[0])
			if err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			ShellFrom(c).Print(c, c.Args[0], value)
		}),
	}

	// RawCmd sends a line as is and prints the reply.
	RawCmd = ishell.Cmd{
		Name:    "raw",
		Aliases: []string{"r"},
		Help:    "LINE...",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			if len(c.Args) < 1 {
				ShellFrom(c).Fail(c, fmt.Errorf("LINE required"))
				return
			}
			reply, err := cl.Raw(strings.Join(c.Args, " "))
			if err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			ShellFrom(c).Print(c, "reply", reply)
		}),
	}

	// QuitRigCmd stops the console.
	QuitRigCmd = ishell.Cmd{
		Name:    "quit-rig",
		Aliases: []string{"q!"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			if err := cl.Exit(); err != nil {
				ShellFrom(c).Fail(c, err)
				return
			}
			ShellFrom(c).Disconnect()
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(client.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
