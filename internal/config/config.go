package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"pump_buy/internal/chainTx"
	"pump_buy/internal/common"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const DefaultEnvFile = ".env"

// 环境变量名
const (
	KeyPrivateKey   = "PRIVATE_KEY"
	KeyToken        = "TOKEN"
	KeyInvestment   = "INVESTMENT"
	KeyUnitLimit    = "UNIT_LIMIT"
	KeyUnitPrice    = "UNIT_PRICE"
	KeyRPCURL       = "RPC_HTTPS_URL"
	KeyWSURL        = "RPC_WSS_URL"
	KeyBondingCurve = "BONDING_CURVE"
	KeyCommitment   = "COMMITMENT"
	KeyRateLimit    = "RPC_RATE_LIMIT"
	KeyLogLevel     = "LOG_LEVEL"
	KeyLogDir       = "LOG_DIR"
	KeyTxTimeout    = "TX_TIMEOUT"
)

// Config 启动时构造一次，之后只读
type Config struct {
	PrivateKey   solana.PrivateKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey // 零值表示按 mint 推导
	Investment   decimal.Decimal
	UnitLimit    uint32
	UnitPrice    uint64
	RPCURL       string
	WSURL        string
	Commitment   rpc.CommitmentType
	RateLimit    float64
	LogLevel     string
	LogDir       string
	TxTimeout    time.Duration
}

// settings 环境变量原始值
type settings struct {
	PrivateKey   string        `mapstructure:"private_key" validate:"required"`
	Token        string        `mapstructure:"token" validate:"required"`
	Investment   string        `mapstructure:"investment" validate:"required"`
	UnitLimit    uint32        `mapstructure:"unit_limit" validate:"gt=0"`
	UnitPrice    uint64        `mapstructure:"unit_price"`
	RPCURL       string        `mapstructure:"rpc_https_url" validate:"required,url"`
	WSURL        string        `mapstructure:"rpc_wss_url" validate:"omitempty,url"`
	BondingCurve string        `mapstructure:"bonding_curve"`
	Commitment   string        `mapstructure:"commitment" validate:"oneof=processed confirmed finalized"`
	RateLimit    float64       `mapstructure:"rpc_rate_limit" validate:"gte=0"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogDir       string        `mapstructure:"log_dir"`
	TxTimeout    time.Duration `mapstructure:"tx_timeout" validate:"gt=0"`
}

type Option func(o *options)

type options struct {
	envFile   string
	overrides map[string]interface{}
}

// WithEnvFile 从指定文件加载环境变量，已存在的环境变量不会被覆盖
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// WithOverride 用命令行参数覆盖环境变量
func WithOverride(key string, value interface{}) Option {
	return func(o *options) {
		o.overrides[key] = value
	}
}

// Load 读取并校验配置，任何错误都以 *common.ConfigurationError 返回
func Load(opts ...Option) (*Config, error) {
	o := &options{
		envFile:   DefaultEnvFile,
		overrides: map[string]interface{}{},
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			// 默认的 .env 可以不存在
			if !(os.IsNotExist(err) && o.envFile == DefaultEnvFile) {
				return nil, &common.ConfigurationError{Err: errors.Wrapf(err, "加载环境变量文件 %s 失败", o.envFile)}
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(KeyPrivateKey, "")
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyInvestment, common.DefaultInvestment)
	v.SetDefault(KeyUnitLimit, common.DefaultUnitLimit)
	v.SetDefault(KeyUnitPrice, common.DefaultUnitPrice)
	v.SetDefault(KeyRPCURL, "")
	v.SetDefault(KeyWSURL, "")
	v.SetDefault(KeyBondingCurve, "")
	v.SetDefault(KeyCommitment, string(rpc.CommitmentConfirmed))
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDir, "")
	v.SetDefault(KeyTxTimeout, "60s")
	for key, value := range o.overrides {
		v.Set(key, value)
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, &common.ConfigurationError{Err: errors.Wrap(err, "解析环境变量失败")}
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if err := validate(&s); err != nil {
		return nil, err
	}
	return s.parse()
}

func validate(s *settings) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.ToUpper(field.Tag.Get("mapstructure"))
	})

	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &common.ConfigurationError{Key: fe.Field(), Err: errors.Errorf("校验规则 %s 未通过", fe.Tag())}
	}
	return &common.ConfigurationError{Err: err}
}

func (s *settings) parse() (*Config, error) {
	// 错误信息中不包含私钥内容
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(s.PrivateKey))
	if err != nil {
		return nil, &common.ConfigurationError{Key: KeyPrivateKey, Err: errors.New("不是有效的 base58 私钥")}
	}
	if err := chainTx.CheckKeypair(key); err != nil {
		return nil, &common.ConfigurationError{Key: KeyPrivateKey, Err: err}
	}

	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(s.Token))
	if err != nil {
		return nil, &common.ConfigurationError{Key: KeyToken, Err: err}
	}

	var curve solana.PublicKey
	if s.BondingCurve != "" {
		curve, err = solana.PublicKeyFromBase58(strings.TrimSpace(s.BondingCurve))
		if err != nil {
			return nil, &common.ConfigurationError{Key: KeyBondingCurve, Err: err}
		}
	}

	investment, err := decimal.NewFromString(strings.TrimSpace(s.Investment))
	if err != nil {
		return nil, &common.ConfigurationError{Key: KeyInvestment, Err: err}
	}
	if !investment.IsPositive() {
		return nil, &common.ConfigurationError{Key: KeyInvestment, Err: errors.Errorf("投入必须大于 0，实际为 %s", investment)}
	}

	return &Config{
		PrivateKey:   key,
		Mint:         mint,
		BondingCurve: curve,
		Investment:   investment,
		UnitLimit:    s.UnitLimit,
		UnitPrice:    s.UnitPrice,
		RPCURL:       s.RPCURL,
		WSURL:        s.WSURL,
		Commitment:   rpc.CommitmentType(s.Commitment),
		RateLimit:    s.RateLimit,
		LogLevel:     s.LogLevel,
		LogDir:       s.LogDir,
		TxTimeout:    s.TxTimeout,
	}, nil
}

// BuyRequest 构造本次买入请求
func (c *Config) BuyRequest() common.BuyRequest {
	return common.BuyRequest{
		Mint:         c.Mint,
		BondingCurve: c.BondingCurve,
		Investment:   c.Investment,
		UnitLimit:    c.UnitLimit,
		UnitPrice:    c.UnitPrice,
	}
}
