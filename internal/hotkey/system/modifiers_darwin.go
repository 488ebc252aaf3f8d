//go:build darwin

package system

import (
	xhotkey "golang.design/x/hotkey"

	"github.com/petems/chronoghost/internal/hotkey"
)

var modifierMap = map[hotkey.Modifier]xhotkey.Modifier{
	hotkey.ModCtrl:  xhotkey.ModCtrl,
	hotkey.ModShift: xhotkey.ModShift,
	hotkey.ModAlt:   xhotkey.ModOption,
	hotkey.ModMeta:  xhotkey.ModCmd,
}
