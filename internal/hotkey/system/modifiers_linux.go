//go:build linux

package system

import (
	xhotkey "golang.design/x/hotkey"

	"github.com/petems/chronoghost/internal/hotkey"
)

// modifierMap for X11: Alt is Mod1, Super is Mod4.
var modifierMap = map[hotkey.Modifier]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModAlt:   xhotkey.Mod1,
	hotkey.ModMeta:  xhotkey.Mod4,
}
