package database_test

import (
	"testing"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/configure/database"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

type RepoService struct {
	Master *gorm.DB `bean:"database.master"`
	Slave  *gorm.DB `bean:"database.slave,optional"`
}

// DBConfig 模拟用户定义的配置结构
type DBConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func TestDatabaseConfiguration(t *testing.T) {
	builder := core.NewApplicationBuilder()

	// 内存配置源
	builder.ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
		cb.AddInMemory(map[string]any{
			"db": map[string]any{
				"master": map[string]any{
					"dsn":            "file::memory:?cache=shared",
					"max_open_conns": 5,
				},
			},
		})
	})

	// 演示 config.Load 的使用：从配置节读出强类型选项
	builder.Configure(database.Configure(func(b *database.Builder) {
		dbConf, err := config.Load[DBConfig](b.ConfigContext().GetConfiguration(), "db.master")
		require.NoError(t, err)

		b.Add("master", sqlite.Open(dbConf.DSN), func(o *database.DatabaseOptions) {
			o.MaxOpenConns = dbConf.MaxOpenConns
			o.AutoMigrate = []any{&User{}}
		})
	}))

	builder.Configure(func(ctx *core.BuildContext) {
		def := beans.NewBeanDefinitionFor[*RepoService]()
		require.NoError(t, ctx.RegisterDefinition("repoService", def))
	})

	app := builder.Build()
	defer app.Beans().DestroySingletons()

	var svc *RepoService
	app.GetService(&svc)

	require.NotNil(t, svc.Master, "Master DB should not be nil")
	require.Nil(t, svc.Slave, "Slave DB should be nil (optional and not configured)")

	// 连接池配置生效
	sqlDB, err := svc.Master.DB()
	require.NoError(t, err)
	require.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)

	// 实际读写
	require.NoError(t, svc.Master.Create(&User{Name: "test"}).Error)

	var count int64
	require.NoError(t, svc.Master.Model(&User{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestDatabaseBuilder_Errors(t *testing.T) {
	logger := logging.NewNopLogger()
	builder := database.NewBuilder(nil)

	// 缺少 dialector
	builder.Add("invalid", nil, nil)

	_, err := builder.Build(logger)
	require.Error(t, err)
	t.Logf("Got expected error: %v", err)
}

func TestDatabaseBuilder_Duplicate(t *testing.T) {
	logger := logging.NewNopLogger()
	builder := database.NewBuilder(nil)

	builder.Add("dup", sqlite.Open("file::memory:"), nil)
	builder.Add("dup", sqlite.Open("file::memory:"), nil)

	factory, err := builder.Build(logger)
	require.Error(t, err)
	if factory != nil {
		factory.Close()
	}
}
