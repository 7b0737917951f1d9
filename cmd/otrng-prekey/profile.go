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
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/profile"
)

var (
	profileKeyFile     string
	profileInstanceTag uint32
	profileVersions    string
	profileLifetime    time.Duration
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build and sign a client profile",
	Long: `Build a client profile from a long-term symmetric key, sign it, and
print its base64 serialisation. The forging key defaults to the long-term
public key; deployments with a separate forger should construct profiles
through the library instead.`,
	Example: `  # Build a two-week profile for instance tag 0x101
  otrng-prekey profile --key longterm.key --instance-tag 257 --versions 4`,
	RunE: runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().StringVarP(&profileKeyFile, "key", "k", "", "File holding the hex symmetric key (required)")
	profileCmd.Flags().Uint32Var(&profileInstanceTag, "instance-tag", 0, "Sender instance tag (>= 0x100)")
	profileCmd.Flags().StringVar(&profileVersions, "versions", "4", "Supported protocol versions")
	profileCmd.Flags().DurationVar(&profileLifetime, "lifetime", 14*24*time.Hour, "Profile lifetime")
	_ = profileCmd.MarkFlagRequired("key")
}

func runProfile(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(profileKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	sym, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("failed to decode symmetric key: %w", err)
	}

	kp, err := ed448.FromSymmetricKey(sym)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	p, err := profile.BuildClientProfile(profileInstanceTag, profileVersions,
		kp, kp.Public(), time.Now().Add(profileLifetime))
	if err != nil {
		return err
	}

	fmt.Println(base64.StdEncoding.EncodeToString(p.Serialize(nil)))
	return nil
}
