/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/josephgoksu/ReportWing/cmd"
	"github.com/josephgoksu/ReportWing/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
