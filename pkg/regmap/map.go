package regmap

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/rigctl/pkg/regbus"
)

// Map describes the registers of a rig.
type Map struct {
	Name string `toml:"name"`
	// Ack makes set commands answer the fixed acknowledgement.
	Ack       bool       `toml:"ack"`
	Registers []Register `toml:"register"`
}

// Load reads a map from a TOML file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("register map load failed (%s): %w", path, err)
	}
	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("register map %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a map from TOML text and validates it.
func Parse(text string) (*Map, error) {
	var m Map
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Resolve returns the built-in profile with the given name, otherwise
// loads the name as a file.
func Resolve(name string) (*Map, error) {
	if m := Profile(name); m != nil {
		return m, nil
	}
	return Load(name)
}

// Validate checks names, widths and addresses.
func (m *Map) Validate() error {
	keywords := map[string]bool{KeywordHello: true, KeywordExit: true}
	for n := range m.Registers {
		reg := &m.Registers[n]
		if reg.Name == "" {
			return fmt.Errorf("register[%d]: name required", n)
		}
		if w := reg.BitWidth(); w > 32 {
			return fmt.Errorf("register %s: width %d exceeds 32", reg.Name, w)
		}
		if reg.Address >= regbus.ValidBit {
			return fmt.Errorf("register %s: address %#x collides with the valid strobe", reg.Name, reg.Address)
		}
		kw := reg.Keyword()
		if keywords[kw] {
			return fmt.Errorf("register %s: duplicated keyword %s", reg.Name, kw)
		}
		keywords[kw] = true
	}
	return nil
}

// Lookup finds a register by name.
func (m *Map) Lookup(name string) *Register {
	for n := range m.Registers {
		if m.Registers[n].Name == name {
			return &m.Registers[n]
		}
	}
	return nil
}

// Commands builds the command table.
func (m *Map) Commands() (*Table, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	t := &Table{byKeyword: make(map[string]*Command)}
	t.add(&Command{Keyword: KeywordHello, Kind: KindHello})
	t.add(&Command{Keyword: KeywordExit, Kind: KindExit})
	for n := range m.Registers {
		reg := &m.Registers[n]
		cmd := &Command{Keyword: reg.Keyword(), Register: reg}
		if reg.Access == Read {
			cmd.Kind = KindRead
		} else {
			cmd.Kind, cmd.Arity = KindSet, 1
			ack := m.Ack
			if reg.Ack != nil {
				ack = *reg.Ack
			}
			if ack {
				cmd.Policy = Ack
			}
		}
		t.add(cmd)
	}
	return t, nil
}

// Table is the fixed set of commands.
type Table struct {
	byKeyword map[string]*Command
	commands  []*Command
}

func (t *Table) add(cmd *Command) {
	t.byKeyword[cmd.Keyword] = cmd
	t.commands = append(t.commands, cmd)
}

// Lookup matches a keyword exactly.
func (t *Table) Lookup(keyword string) *Command {
	return t.byKeyword[keyword]
}

// Commands lists all commands in definition order.
func (t *Table) Commands() []*Command {
	return append([]*Command(nil), t.commands...)
}

// Keywords lists all keywords sorted.
func (t *Table) Keywords() []string {
	kws := make([]string, 0, len(t.commands))
	for _, cmd := range t.commands {
		kws = append(kws, cmd.Keyword)
	}
	sort.Strings(kws)
	return kws
}
