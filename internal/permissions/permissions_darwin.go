//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation
#import <ApplicationServices/ApplicationServices.h>
#import <Foundation/Foundation.h>

int checkAccessibilityPermission(int prompt) {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: prompt ? @YES : @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import "errors"

// ErrAccessibilityDenied is returned until the user allows the app under
// System Settings > Privacy & Security > Accessibility.
var ErrAccessibilityDenied = errors.New("accessibility permission not granted")

// CheckAccessibility reports whether global hotkeys can be delivered to us.
// With prompt set, macOS shows its approval dialog when access is missing.
func CheckAccessibility(prompt bool) bool {
	p := 0
	if prompt {
		p = 1
	}
	return C.checkAccessibilityPermission(C.int(p)) == 1
}

// EnsurePermissions prompts for accessibility access if it is missing.
func EnsurePermissions() error {
	if !CheckAccessibility(true) {
		return ErrAccessibilityDenied
	}
	return nil
}
