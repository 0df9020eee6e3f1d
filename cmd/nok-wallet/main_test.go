package main

import (
	"errors"
	"testing"

	"github.com/nextofkin/nok-wallet/config"
	"github.com/nextofkin/nok-wallet/pkg/wallet"
)

func TestRunAtExit_ReverseOrder(t *testing.T) {
	var order []int
	atExit = []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}
	runAtExit()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("order = %v, want [2 1]", order)
	}
	if atExit != nil {
		t.Error("atExit not reset")
	}
}

func TestRunAtExit_ClosesWallet(t *testing.T) {
	cfg := config.Default(config.Ropsten)
	cfg.DataDir = t.TempDir()
	cfg.Provider.URL = "http://127.0.0.1:1/"
	cfg.SecureStore.Backend = config.BackendMemory
	cfg.Keystore.Light = true
	if err := config.EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs() error: %v", err)
	}

	w, err := wallet.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	atExit = append(atExit, func() { w.Close() })
	runAtExit()

	if _, err := w.GetPublicAddress(t.Context()); !errors.Is(err, wallet.ErrSessionDisposed) {
		t.Errorf("GetPublicAddress() after exit hooks error = %v, want ErrSessionDisposed", err)
	}
}
