package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"motor-shield-service/internal/logger"
	"motor-shield-service/internal/types"

	"github.com/redis/go-redis/v9"
)

const (
	KeyMotor  = "shield:motor"
	KeyOutput = "shield:output"
	KeyPower  = "shield:power"

	// Hash and channel holding the published shield state
	HashShield    = "shield"
	ChannelShield = "shield"

	// Hash based commands: a field of HashCommand is set, then its name is
	// published on ChannelCommand.
	HashCommand    = "shield:command"
	ChannelCommand = "shield:command"

	StreamFaults = "events:faults"
	SetFaults    = "shield:fault"
)

type Callbacks struct {
	MotorCallback  func(types.MotorCommand) error
	OutputCallback func(types.OutputCommand) error
	PowerCallback  func(string) error // "enable", "disable", "halt"
}

// commandHash is the part of the client that reads and clears hash commands.
type commandHash interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

type RedisClient struct {
	client    *redis.Client
	commands  commandHash
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
		DB:   0,
	})
	return &RedisClient{
		client:    client,
		commands:  client,
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetCallbacks must be called before StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Errorf("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts all Redis listeners after system initialization is complete
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	pubsub := r.client.Subscribe(r.ctx, ChannelCommand)
	r.logger.Infof("Subscribed to Redis channel: %s", ChannelCommand)

	r.wg.Add(1)
	go r.redisListener(pubsub)

	// list command listeners for LPUSH commands
	r.wg.Add(3)
	go r.listCommandListener(KeyMotor, r.handleMotorCommand)
	go r.listCommandListener(KeyOutput, r.handleOutputCommand)
	go r.listCommandListener(KeyPower, r.handlePowerCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// short timeout so cancellation is noticed
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Warnf("Error reading from %s list: %v", key, err)
				time.Sleep(100 * time.Millisecond)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleMotorCommand(value string) error {
	if r.callbacks.MotorCallback == nil {
		return nil
	}
	cmd, err := ParseMotorCommand(value)
	if err != nil {
		return err
	}
	return r.callbacks.MotorCallback(cmd)
}

func (r *RedisClient) handleOutputCommand(value string) error {
	if r.callbacks.OutputCallback == nil {
		return nil
	}
	cmd, err := ParseOutputCommand(value)
	if err != nil {
		return err
	}
	return r.callbacks.OutputCallback(cmd)
}

func (r *RedisClient) handlePowerCommand(value string) error {
	if r.callbacks.PowerCallback == nil {
		return nil
	}
	cmd, err := ParsePowerCommand(value)
	if err != nil {
		return err
	}
	return r.callbacks.PowerCallback(cmd)
}

func (r *RedisClient) redisListener(pubsub *redis.PubSub) {
	defer r.wg.Done()
	defer pubsub.Close()

	r.logger.Infof("Starting Redis message listener")
	channel := pubsub.Channel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting listener")
			return
		case msg, ok := <-channel:
			if !ok || msg == nil {
				r.logger.Errorf("Redis channel closed unexpectedly")
				r.logger.Fatalf("Redis connection lost, exiting to allow systemd restart")
			}

			r.logger.Debugf("Received Redis message: channel=%s payload=%s", msg.Channel, msg.Payload)
			if msg.Channel == ChannelCommand {
				r.processCommandMessage(msg.Payload)
			}
		}
	}
}

// processCommandMessage handles a hash based command. The payload names the
// HashCommand field that was set; the field is cleared once handled.
func (r *RedisClient) processCommandMessage(payload string) {
	var handler func(string) error
	switch payload {
	case "motor":
		handler = r.handleMotorCommand
	case "output":
		handler = r.handleOutputCommand
	case "power":
		handler = r.handlePowerCommand
	default:
		r.logger.Infof("Unhandled command payload: %s", payload)
		return
	}

	value, err := r.commands.HGet(r.ctx, HashCommand, payload).Result()
	if err == redis.Nil {
		return
	}
	if err != nil {
		r.logger.Warnf("Error reading hash field %s: %v", payload, err)
		return
	}

	if err := handler(value); err != nil {
		r.logger.Warnf("Error handling %s command: %v", payload, err)
	}

	if err := r.commands.HDel(r.ctx, HashCommand, payload).Err(); err != nil {
		r.logger.Warnf("Error clearing hash field %s: %v", payload, err)
	}
}

func (r *RedisClient) PublishShieldState(state types.ShieldState) error {
	r.logger.Infof("Publishing shield state: %s", state)
	timestamp := time.Now().Format(time.RFC3339)

	// Atomically set both state and timestamp fields
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, HashShield, "state", string(state))
	pipe.HSet(r.ctx, HashShield, "state:timestamp", timestamp)
	pipe.Publish(r.ctx, ChannelShield, "state")
	_, err := pipe.Exec(r.ctx)

	if err != nil {
		r.logger.Warnf("Failed to publish shield state: %v", err)
		return err
	}
	return nil
}

// StatusFields flattens a status into shield hash fields.
func StatusFields(status types.ShieldStatus) map[string]interface{} {
	fields := map[string]interface{}{
		"latch": fmt.Sprintf("%08b", status.Latch),
	}
	for n, m := range status.Motors {
		prefix := "motor:" + strconv.Itoa(n) + ":"
		fields[prefix+"direction"] = m.Direction
		fields[prefix+"speed"] = m.Speed
		fields[prefix+"duty"] = m.Duty
		fields[prefix+"enabled"] = strconv.FormatBool(m.Enabled)
	}
	return fields
}

func (r *RedisClient) PublishStatus(status types.ShieldStatus) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, HashShield, StatusFields(status))
	pipe.Publish(r.ctx, ChannelShield, "status")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish shield status: %v", err)
		return err
	}
	r.logger.Debugf("Published shield status, latch=%08b", status.Latch)
	return nil
}

// ReportFaultPresent reports a fault as present to Redis
func (r *RedisClient) ReportFaultPresent(code int, description string, info string) error {
	r.logger.Infof("Reporting fault present: code=%d, description=%s", code, description)

	pipe := r.client.Pipeline()
	pipe.SAdd(r.ctx, SetFaults, code)

	eventData := map[string]interface{}{
		"group":       "shield",
		"code":        code,
		"description": description,
		"ts":          time.Now().Unix(),
	}
	if info != "" {
		eventData["info"] = info
	}
	pipe.XAdd(r.ctx, &redis.XAddArgs{
		Stream: StreamFaults,
		MaxLen: 1000,
		Values: eventData,
	})
	pipe.Publish(r.ctx, ChannelShield, "fault")

	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to report fault present: %v", err)
		return err
	}
	return nil
}

// ReportFaultAbsent reports a fault as absent (cleared) to Redis
func (r *RedisClient) ReportFaultAbsent(code int) error {
	r.logger.Infof("Reporting fault absent: code=%d", code)

	pipe := r.client.Pipeline()
	pipe.SRem(r.ctx, SetFaults, code)
	pipe.XAdd(r.ctx, &redis.XAddArgs{
		Stream: StreamFaults,
		MaxLen: 1000,
		Values: map[string]interface{}{
			"group": "shield",
			"code":  -code, // negative code means cleared
		},
	})
	pipe.Publish(r.ctx, ChannelShield, "fault")

	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to report fault absent: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
