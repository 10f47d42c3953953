// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

// Command driftcli inspects a running driftd node over its local IPC
// socket: account balances, chain status and the validator set.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/driftchain/driftd/integrator"
)

var ipcFlag = cli.StringFlag{
	Name:  "ipc",
	Usage: "path to the node's IPC socket",
	Value: "./data/driftd.ipc",
}

func main() {
	app := cli.NewApp()
	app.Name = "driftcli"
	app.Usage = "inspect a running drift node"
	app.Flags = []cli.Flag{ipcFlag}
	app.Commands = []cli.Command{
		{Name: "status", Usage: "print chain height, peer count and supply", Action: statusCmd},
		{Name: "balance", Usage: "print an account's balance, stake and nonce", ArgsUsage: "<address>", Action: balanceCmd},
		{Name: "validators", Usage: "list the known validator set", Action: validatorsCmd},
		{Name: "console", Usage: "start an interactive REPL against the node", Action: consoleCmd},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "driftcli:", err)
		os.Exit(1)
	}
}

func dialPath(path string) (net.Conn, error) {
	conn, err := net.DialTimeout("unix", path, 3*time.Second)
	if err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("driftcli: cannot reach node at %s: %v", path, err), 2)
	}
	return conn, nil
}

func dial(ctx *cli.Context) (net.Conn, error) {
	return dialPath(ctx.GlobalString(ipcFlag.Name))
}

func call(conn net.Conn, method string, params interface{}) (json.RawMessage, error) {
	req := integrator.IPCRequest{Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, cli.NewExitError(err.Error(), 1)
		}
		req.Params = b
	}
	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("driftcli: send request: %v", err), 2)
	}
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return nil, cli.NewExitError("driftcli: node closed connection without a response", 2)
	}
	var resp integrator.IPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("driftcli: decode response: %v", err), 2)
	}
	if resp.Error != "" {
		return nil, cli.NewExitError(fmt.Sprintf("driftcli: %s", resp.Error), 1)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, cli.NewExitError(err.Error(), 1)
	}
	return raw, nil
}

func statusCmd(ctx *cli.Context) error {
	return printStatus(ctx.GlobalString(ipcFlag.Name))
}

func printStatus(path string) error {
	conn, err := dialPath(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	raw, err := call(conn, "status", nil)
	if err != nil {
		return err
	}
	var status integrator.StatusInfo
	if err := json.Unmarshal(raw, &status); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"height", "peers", "total issued", "proposing"})
	table.Append([]string{
		fmt.Sprintf("%d", status.Height),
		fmt.Sprintf("%d", status.PeerCount),
		fmt.Sprintf("%d", status.TotalIssued),
		fmt.Sprintf("%t", status.Proposing),
	})
	table.Render()
	return nil
}

func balanceCmd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("driftcli: balance requires exactly one address argument", 1)
	}
	return printBalance(ctx.GlobalString(ipcFlag.Name), ctx.Args().First())
}

func printBalance(path, address string) error {
	conn, err := dialPath(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	raw, err := call(conn, "balance", map[string]string{"address": address})
	if err != nil {
		return err
	}
	var account struct {
		Address     string
		Balance     uint64
		Nonce       uint64
		Stake       uint64
		CreatedAt   int64
		LastUpdated int64
	}
	if err := json.Unmarshal(raw, &account); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"address", "balance", "stake", "nonce"})
	table.Append([]string{account.Address, fmt.Sprintf("%d", account.Balance), fmt.Sprintf("%d", account.Stake), fmt.Sprintf("%d", account.Nonce)})
	table.Render()
	return nil
}

func validatorsCmd(ctx *cli.Context) error {
	return printValidators(ctx.GlobalString(ipcFlag.Name))
}

func printValidators(path string) error {
	conn, err := dialPath(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	raw, err := call(conn, "validators", nil)
	if err != nil {
		return err
	}
	var validators []struct {
		Address         string
		Moniker         string
		Stake           uint64
		Reputation      float64
		State           string
		ProducedBlocks  uint64
		MissedBlocks    uint64
		IsDeveloperNode bool
	}
	if err := json.Unmarshal(raw, &validators); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"address", "moniker", "stake", "reputation", "state", "produced", "missed", "dev"})
	for _, v := range validators {
		state := v.State
		if v.State == "active" {
			state = color.GreenString(v.State)
		} else if v.State == "jailed" || v.State == "tombstoned" {
			state = color.RedString(v.State)
		}
		table.Append([]string{
			v.Address, v.Moniker,
			fmt.Sprintf("%d", v.Stake),
			fmt.Sprintf("%.2f", v.Reputation),
			state,
			fmt.Sprintf("%d", v.ProducedBlocks),
			fmt.Sprintf("%d", v.MissedBlocks),
			fmt.Sprintf("%t", v.IsDeveloperNode),
		})
	}
	table.Render()
	return nil
}

// consoleCmd runs a REPL dispatching "status", "balance <addr>" and
// "validators" to the node, reusing the same command handlers as the
// non-interactive subcommands, so each command dials the node afresh.
func consoleCmd(ctx *cli.Context) error {
	path := ctx.GlobalString(ipcFlag.Name)
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), "driftcli_history")
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("driftcli console, node %s (Ctrl-D to exit)\n", path)
	for {
		input, err := line.Prompt("drift> ")
		if err != nil {
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		var cmdErr error
		switch fields[0] {
		case "status":
			cmdErr = printStatus(path)
		case "balance":
			if len(fields) != 2 {
				fmt.Println("usage: balance <address>")
				continue
			}
			cmdErr = printBalance(path, fields[1])
		case "validators":
			cmdErr = printValidators(path)
		case "exit", "quit":
			return nil
		default:
			fmt.Println("unknown command; try status, balance <address>, validators, exit")
			continue
		}
		if cmdErr != nil {
			fmt.Fprintln(os.Stderr, cmdErr)
		}
	}
}
