package rules

// DefaultRuleSet returns the rule set shipped with historylens. It is stored
// on first run and merged into the user's rules on every startup, so new
// entries added here reach existing installs at the lowest priority.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		// Blogs
		{Pattern: "https://qiita.com/*/items/*", Category: "📝 Read Article"},
		{Pattern: "https://zenn.dev/*/articles/*", Category: "📝 Read Article"},
		{Pattern: "https://medium.com/*", Category: "📝 Read Article"},
		{Pattern: "https://dev.to/*", Category: "📝 Read Article"},
		{Pattern: "https://hackernoon.com/*", Category: "📝 Read Article"},
		{Pattern: "https://blog.64p.org/entry/*", Category: "📝 Read Article"},
		{Pattern: "https://note.com/*", Category: "📝 Read Article"},
		{Pattern: "https://togetter.com/li/*", Category: "📝 Read Article"},
		{Pattern: "https://*.hateblo.jp/entry/*", Category: "📝 Read Article"},
		{Pattern: "https://*.hatenablog.com/entry/*", Category: "📝 Read Article"},
		{Pattern: "https://*.tdiary.net/*.html", Category: "📝 Read Article"},
		{Pattern: "https://findy-code.io/media/articles/*", Category: "📝 Read Article"},
		{Pattern: "https://automaton-media.com/articles/*", Category: "📝 Read Article"},
		{Pattern: "https://*.blogspot.com/*", Category: "📝 Read Article"},
		{Pattern: "https://gigazine.net/news/*", Category: "📝 Read Article"},
		{Pattern: "https://sakumaga.sakura.ad.jp/entry/*", Category: "📝 Read Article"},
		{Pattern: "https://cloud.sakura.ad.jp/news/*", Category: "📝 Read Article"},

		// News
		{Pattern: "https://www.nikkei.com/article/*", Category: "📰 Read News"},
		{Pattern: "https://jp.reuters.com/article/*", Category: "📰 Read News"},
		{Pattern: "https://www.asahi.com/articles/*", Category: "📰 Read News"},
		{Pattern: "https://mainichi.jp/articles/*", Category: "📰 Read News"},
		{Pattern: "https://www.yomiuri.co.jp/*/20*", Category: "📰 Read News"},
		{Pattern: "https://www3.nhk.or.jp/news/html/*", Category: "📰 Read News"},
		{Pattern: "https://news.yahoo.co.jp/articles/*", Category: "📰 Read News"},

		// Slides
		{Pattern: "https://speakerdeck.com/*", Category: "🎤 Viewed Slides"},
		{Pattern: "https://www.slideshare.net/*", Category: "🎤 Viewed Slides"},
		{Pattern: "https://slides.com/*", Category: "🎤 Viewed Slides"},

		// Q&A
		{Pattern: "https://stackoverflow.com/questions/*", Category: "💡 Researched Solution"},
		{Pattern: "https://serverfault.com/questions/*", Category: "💡 Researched Solution"},
		{Pattern: "https://superuser.com/questions/*", Category: "💡 Researched Solution"},
		{Pattern: "https://askubuntu.com/questions/*", Category: "💡 Researched Solution"},
		{Pattern: "https://*.stackexchange.com/questions/*", Category: "💡 Researched Solution"},

		// Games
		{Pattern: "https://store.steampowered.com/app/*", Category: "🎮 Browsed Game"},

		// Shared files
		{Pattern: "https://*.sharepoint.com/*", Category: "📁 Accessed Shared File"},

		// Repositories. Pull requests and issues must stay ahead of the
		// catch-all repository rule.
		{Pattern: "https://github.com/*/pull/*", Category: "🔍 Reviewed PR"},
		{Pattern: "https://github.com/*/issues/*", Category: "🐛 Checked Issue"},
		{Pattern: "https://github.com/*/*", Category: "📦 Explored Repository"},

		// Social media
		{Pattern: "https://x.com/*", Category: "🐦 Browsed Social Media"},
		{Pattern: "https://twitter.com/*", Category: "🐦 Browsed Social Media"},

		// Video
		{Pattern: "https://www.youtube.com/watch*", Category: "📺 Watched Video"},
		{Pattern: "https://youtu.be/*", Category: "📺 Watched Video"},
		{Pattern: "https://www.nicovideo.jp/watch/*", Category: "📺 Watched Video"},
		{Pattern: "https://vimeo.com/*", Category: "📺 Watched Video"},
		{Pattern: "https://www.twitch.tv/*", Category: "📺 Watched Video"},

		// Ignored
		{Pattern: "https://duckduckgo.com/*", Category: "🚫 Ignored"},
	}
}
