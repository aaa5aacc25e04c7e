package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/configure/redis"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
	goredis "github.com/redis/go-redis/v9"
)

// CacheService 依赖 Redis 客户端的服务
type CacheService struct {
	Cache *goredis.Client `bean:"redis.cache"`
	Queue *goredis.Client `bean:"redis.queue,optional"`
}

func redisAvailable() bool {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

func TestRedisConfiguration(t *testing.T) {
	if !redisAvailable() {
		t.Skip("redis not available at localhost:6379")
	}

	builder := core.NewApplicationBuilder()

	builder.Configure(redis.Configure(func(b *redis.Builder) {
		b.AddClient("cache", func(o *redis.ClientOptions) {
			o.Addr = "localhost:6379"
		})
	}))

	builder.Configure(func(ctx *core.BuildContext) {
		def := beans.NewBeanDefinitionFor[*CacheService]()
		if err := ctx.RegisterDefinition("cacheService", def); err != nil {
			t.Fatalf("failed to register service: %v", err)
		}
	})

	app := builder.Build()
	defer app.Beans().DestroySingletons()

	var svc *CacheService
	app.GetService(&svc)

	if svc.Cache == nil {
		t.Error("Cache client should not be nil")
	}
	if svc.Queue != nil {
		t.Error("Queue client should be nil (optional and not configured)")
	}

	// 按名解析
	cache, err := app.Beans().GetBean("redis.cache")
	if err != nil {
		t.Fatalf("Failed to resolve named client 'redis.cache': %v", err)
	}
	if _, ok := cache.(*goredis.Client); !ok {
		t.Errorf("Expected *redis.Client, got %T", cache)
	}
}

func TestRedisBuilder_Errors(t *testing.T) {
	logger := logging.NewNopLogger()
	builder := redis.NewBuilder()

	// 必填项缺失
	builder.AddClient("invalid", func(o *redis.ClientOptions) {
		o.Addr = ""
	})

	_, err := builder.Build(logger)
	if err == nil {
		t.Fatal("Expected error from invalid configuration, got nil")
	}
	t.Logf("Got expected error: %v", err)
}

func TestRedisBuilder_Empty(t *testing.T) {
	factory, err := redis.NewBuilder().Build(logging.NewNopLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if factory != nil {
		t.Error("Expected nil factory when no clients configured")
	}
}
