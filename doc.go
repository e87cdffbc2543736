// Package plaza is the Plaza social backend.

// This package contains no code. The server lives in cmd/server and the
// pieces it wires together are organized into subpackages:

// - internal/handlers: HTTP handlers and the route table
// - internal/auth: OTP signup, password and Google login, JWTs
// - internal/social: follows, suggestions, profiles
// - internal/posts: posts, hashtags, likes and comments
// - internal/stories: 24 hour stories, views and the archive
// - internal/feed: Recent, Friends and Popular feeds
// - internal/search: database and Elasticsearch search
// - internal/models: database schema
// - internal/repository: user and follow queries
// - internal/database: connection and migrations
// - internal/otp: signup code generation and storage
// - internal/storage: S3 image storage
// - internal/email: SES mail
// - internal/events: Kafka domain events
// - internal/middleware: auth, rate limiting, logging, metrics, tracing
// - internal/seed: development data
package plaza
