package main

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/lola/cmd/lola"

var logger = otelslog.NewLogger(scopeName)
