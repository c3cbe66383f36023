// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xsco-labs/dbmig/pkg/core/migrate"
)

// confirmer returns the migrate.Confirmer to use for this invocation:
// nil (always proceed) when --force was given, or an interactive
// yes/no prompt over stdin/stdout otherwise.
func confirmer() migrate.Confirmer {
	if force {
		return nil
	}
	return promptConfirm
}

func promptConfirm(_ context.Context, step string) (bool, error) {
	fmt.Printf("run %s? [y/N]: ", step)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}
