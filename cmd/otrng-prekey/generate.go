// Copyright (C) 2025 the libotr-ng contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrWhax/libotr-ng/ed448"
)

var generateOutputFile string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a long-term ed448 key pair",
	Long: `Generate a long-term ed448 key pair and print the 57-byte symmetric
key (hex) together with the derived public key (hex). The symmetric key
is the only value that needs to be kept.`,
	Example: `  # Generate a key pair on stdout
  otrng-prekey generate

  # Write the symmetric key to a file
  otrng-prekey generate --output longterm.key`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutputFile, "output", "o", "", "Output file for the symmetric key (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var sym [ed448.SymmetricKeyBytes]byte
	if _, err := rand.Read(sym[:]); err != nil {
		return fmt.Errorf("failed to sample symmetric key: %w", err)
	}

	kp, err := ed448.FromSymmetricKey(sym[:])
	if err != nil {
		return err
	}
	defer kp.Destroy()

	symHex := hex.EncodeToString(sym[:])
	if generateOutputFile != "" {
		if err := os.WriteFile(generateOutputFile, []byte(symHex+"\n"), 0o600); err != nil {
			return fmt.Errorf("failed to write symmetric key: %w", err)
		}
		fmt.Printf("symmetric key written to %s\n", generateOutputFile)
	} else {
		fmt.Printf("symmetric-key: %s\n", symHex)
	}
	fmt.Printf("public-key: %s\n", hex.EncodeToString(kp.PublicBytes()))
	return nil
}
