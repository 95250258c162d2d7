package preview

import "testing"

func TestIsServiceMessage(t *testing.T) {
	service := []string{
		"Channel created",
		"Channel was created",
		"Group photo updated",
		"Ivan joined the channel",
		"Maria left the group",
		"Message was pinned",
		"History was cleared",
		"Voice chat started",
		"Call duration: 5 minutes",
		"Giveaway started",
		"Channel was boosted",
		"Topic created: News",
		"Payment of 100 RUB",
		"Auto-delete timer set to 1 day",
		"Screenshot was taken",
		"chat upgraded to supergroup",
		"Bot was allowed to send messages",
		"Service notification",
		"SYSTEM MESSAGE",
	}
	for _, text := range service {
		if !IsServiceMessage(text) {
			t.Fatalf("ожидали, что %q распознается как служебное", text)
		}
	}

	regular := []string{
		"",
		"Обычный пост о канале",
		"The channel is great, new video inside",
		"We created a new product",
		"Giveaway results are in our pinned post",
	}
	for _, text := range regular {
		if IsServiceMessage(text) {
			t.Fatalf("не ожидали, что %q распознается как служебное", text)
		}
	}
}
