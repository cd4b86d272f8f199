package regmap

import "sort"

var profiles = map[string]func() *Map{
	"basic":    Basic,
	"extended": Extended,
}

// Basic is the quiet reference rig: three inputs and one output.
func Basic() *Map {
	return &Map{
		Name: "basic",
		Registers: []Register{
			{Name: "A", Address: 4},
			{Name: "B", Address: 5},
			{Name: "MODE", Address: 6},
			{Name: "C", Address: 1, Access: Read},
		},
	}
}

// Extended adds the emulator control registers and acknowledges writes.
func Extended() *Map {
	return &Map{
		Name: "extended",
		Ack:  true,
		Registers: []Register{
			{Name: "emu_rst", Address: 0, Width: 1},
			{Name: "emu_dec_thr", Address: 1},
			{Name: "emu_ctrl_data", Address: 2},
			{Name: "emu_ctrl_mode", Address: 3, Width: 2},
			{Name: "a_in", Address: 4},
			{Name: "b_in", Address: 5},
			{Name: "mode_in", Address: 6},
			{Name: "c_out", Address: 1, Access: Read},
		},
	}
}

// Profile returns a fresh copy of a built-in map, nil if unknown.
func Profile(name string) *Map {
	if fn := profiles[name]; fn != nil {
		return fn()
	}
	return nil
}

// Profiles lists built-in map names.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
