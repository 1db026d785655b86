package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pump_buy/internal/chainTx"
	"pump_buy/internal/common"
	"pump_buy/internal/config"
	solclient "pump_buy/internal/solana"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// 命令行参数
var (
	envFile  string
	logLevel string
	timeout  time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		common.Log.WithError(err).Error("买入失败")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pump-buy",
		Short:         "在 pump.fun bonding curve 上买入代币",
		Long:          "读取环境变量中的私钥、代币地址和投入金额，提交一笔 buy 交易并等待确认。",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "环境变量文件")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "日志级别，覆盖 LOG_LEVEL")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "整笔交易的超时时间，覆盖 TX_TIMEOUT")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	opts := []config.Option{config.WithEnvFile(envFile)}
	if cmd.Flags().Changed("log-level") {
		opts = append(opts, config.WithOverride(config.KeyLogLevel, logLevel))
	}
	if cmd.Flags().Changed("timeout") {
		opts = append(opts, config.WithOverride(config.KeyTxTimeout, timeout.String()))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}

	closeLog, err := common.InitLogger(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return err
	}
	defer closeLog()

	signer, err := chainTx.NewKeypairSigner(cfg.PrivateKey)
	if err != nil {
		return &common.SigningError{Err: err}
	}

	params, err := chainTx.NewBuyParams(cfg.BuyRequest(), signer.PublicKey())
	if err != nil {
		return err
	}

	clientOpts := []solclient.Option{
		solclient.WithCommitment(cfg.Commitment),
		solclient.WithRateLimit(cfg.RateLimit),
	}
	if cfg.WSURL != "" {
		clientOpts = append(clientOpts, solclient.WithWebsocket(cfg.WSURL))
	}
	client := solclient.New(cfg.RPCURL, clientOpts...)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.TxTimeout)
	defer cancel()

	common.Log.WithFields(logrus.Fields{
		"wallet":     signer.PublicKey().String(),
		"mint":       params.Mint.String(),
		"investment": cfg.Investment.String(),
		"maxSolCost": params.MaxSolCost,
	}).Info("开始买入")

	result, err := chainTx.NewAssembler(client).BuildAndSubmit(ctx, signer, params)
	if err != nil {
		return err
	}

	fmt.Printf("买入成功: https://solscan.io/tx/%s (slot %d, %s)\n", result.Signature, result.Slot, result.ConfirmationStatus)
	return nil
}
