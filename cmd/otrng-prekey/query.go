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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrWhax/libotr-ng/ed448"
	"github.com/DrWhax/libotr-ng/prekeyclient"
	"github.com/DrWhax/libotr-ng/profile"
)

var (
	queryServer      string
	queryAccount     string
	queryInstanceTag uint32
	queryPeer        string
	queryVersions    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Emit a standalone prekey retrieval query",
	Long: `Emit the base64 ensemble query retrieval message asking the server
for a peer's prekey ensembles. The query rides outside the DAKE, so a
throwaway long-term key is sufficient.`,
	Example: `  # Ask for alice's version-4 ensembles
  otrng-prekey query --server prekey.example.org --account bob@example.org \
      --instance-tag 257 --peer alice@example.org --versions 4`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryServer, "server", "", "Prekey server identity (required)")
	queryCmd.Flags().StringVar(&queryAccount, "account", "", "Local account identity (required)")
	queryCmd.Flags().Uint32Var(&queryInstanceTag, "instance-tag", 0, "Sender instance tag (>= 0x100)")
	queryCmd.Flags().StringVar(&queryPeer, "peer", "", "Peer identity to retrieve prekeys for (required)")
	queryCmd.Flags().StringVar(&queryVersions, "versions", "4", "Protocol versions to retrieve")
	_ = queryCmd.MarkFlagRequired("server")
	_ = queryCmd.MarkFlagRequired("account")
	_ = queryCmd.MarkFlagRequired("peer")
}

func runQuery(cmd *cobra.Command, args []string) error {
	kp, err := ed448.Generate(rand.Reader)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	p, err := profile.BuildClientProfile(queryInstanceTag, queryVersions,
		kp, kp.Public(), time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	client, err := prekeyclient.NewClient(queryServer, queryAccount,
		queryInstanceTag, kp, p, nil)
	if err != nil {
		return err
	}
	defer client.Free()

	msg, err := client.RetrievePrekeys(queryPeer, queryVersions)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}
