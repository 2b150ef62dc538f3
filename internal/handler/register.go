package handler

import (
	"github.com/go-telegram/bot"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleHelp)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/create_task", bot.MatchTypePrefix, h.handleCreateTask)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/my_tasks", bot.MatchTypePrefix, h.handleMyTasks)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/search_tasks", bot.MatchTypePrefix, h.handleSearchTasks)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/search", bot.MatchTypePrefix, h.handleSearchTasks)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/done", bot.MatchTypePrefix, h.handleDone)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, h.handleStats)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/deadlines", bot.MatchTypePrefix, h.handleDeadlines)

	// Task-creation session callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "select_list_", bot.MatchTypePrefix, h.handleSelectList)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "select_assignee_", bot.MatchTypePrefix, h.handleSelectAssignee)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "add_files", bot.MatchTypeExact, h.handleAddFiles)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "create_task_now", bot.MatchTypeExact, h.handleCreateTaskNow)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cancel_task", bot.MatchTypeExact, h.handleCancelTask)

	// Task browsing callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "view_task_", bot.MatchTypePrefix, h.handleViewTask)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "move_card_", bot.MatchTypePrefix, h.handleMoveCard)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "complete_card_", bot.MatchTypePrefix, h.handleCompleteCard)

	// Owner edit callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "edit_task_", bot.MatchTypePrefix, h.handleEditTask)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "edit_name_", bot.MatchTypePrefix, h.handleEditName)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "edit_desc_", bot.MatchTypePrefix, h.handleEditDescription)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "edit_priority_", bot.MatchTypePrefix, h.handleEditPriority)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "set_priority_", bot.MatchTypePrefix, h.handleSetPriority)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "edit_duedate_", bot.MatchTypePrefix, h.handleEditDueDate)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "manage_files_", bot.MatchTypePrefix, h.handleManageFiles)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "add_file_", bot.MatchTypePrefix, h.handleAddCardFile)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "remove_file_", bot.MatchTypePrefix, h.handleRemoveFile)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "delete_task_", bot.MatchTypePrefix, h.handleDeleteTask)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "confirm_delete_", bot.MatchTypePrefix, h.handleConfirmDelete)

	// Statistics callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "stats_", bot.MatchTypePrefix, h.handleStatsPeriod)
}
