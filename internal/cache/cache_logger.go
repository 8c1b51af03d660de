package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func UserKey(userID string) string {
	return fmt.Sprintf("id:%s", userID)
}

func QuizKey(quizID uint) string {
	return fmt.Sprintf("id:%d", quizID)
}

// InvalidateUserCache drops the cached account of userID
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User, UserKey(userID))
}

// InvalidateQuizCache drops the cached quiz metadata of quizID
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint) {
	SafeDelete(ctx, cm.Quiz, QuizKey(quizID))
}
