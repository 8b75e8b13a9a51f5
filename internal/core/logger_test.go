package core

import (
	charmlog "github.com/charmbracelet/log"
)

// The server binary hands a charmbracelet logger straight to the service;
// keep the interface compatible with it.
var _ Logger = (*charmlog.Logger)(nil)

var _ Logger = noopLogger{}
